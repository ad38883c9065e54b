package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Connection identifies the vMix host to control.
type Connection struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Polling controls the snapshot refresh loop.
type Polling struct {
	IntervalMS        int `toml:"interval_ms"`
	BackoffMaxMS      int `toml:"backoff_max_ms"`
	LostAfterFailures int `toml:"lost_after_failures"`
}

// Commands controls dispatch retry and confirmation behavior.
type Commands struct {
	TimeoutMS      int  `toml:"timeout_ms"`
	MaxRetries     int  `toml:"max_retries"`
	RetryBackoffMS int  `toml:"retry_backoff_ms"`
	UseCutFallback bool `toml:"use_cut_fallback"`
}

// API configures the local HTTP surface consumed by UI layers and the CLI.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Notifications configures optional ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config is the root configuration document.
type Config struct {
	Connection    Connection    `toml:"connection"`
	Polling       Polling       `toml:"polling"`
	Commands      Commands      `toml:"commands"`
	API           API           `toml:"api"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	DataDir       string        `toml:"data_dir"`
}

// PollInterval returns the base poll period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMS) * time.Millisecond
}

// BackoffMax returns the cap for the degraded poll interval.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Polling.BackoffMaxMS) * time.Millisecond
}

// CommandTimeout returns the pending-command confirmation timeout.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Commands.TimeoutMS) * time.Millisecond
}

// RetryBackoff returns the base delay between command retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Commands.RetryBackoffMS) * time.Millisecond
}

// HistoryPath returns the SQLite database path for command history and
// connection profiles.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "vmixctl.db")
}

// LockPath returns the daemon single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "vmixctld.lock")
}

// EnsureDirectories creates the directories the controller writes to.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vmixctl", "config.toml"), nil
}

// Load reads configuration from the given path (or the default location when
// empty), applies environment overrides, normalizes, and validates. A missing
// config file is not an error; defaults apply.
func Load(path string) (*Config, string, error) {
	_ = godotenv.Load()

	resolved := path
	if resolved == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if path != "" {
			return nil, resolved, fmt.Errorf("config file %s does not exist", resolved)
		}
	default:
		return nil, resolved, fmt.Errorf("read %s: %w", resolved, err)
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, resolved, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) applyEnv() {
	if host := strings.TrimSpace(os.Getenv("VMIX_HOST")); host != "" {
		c.Connection.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("VMIX_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			c.Connection.Port = parsed
		}
	}
	if token := strings.TrimSpace(os.Getenv("VMIX_API_TOKEN")); token != "" {
		c.API.Token = token
	}
	if topic := strings.TrimSpace(os.Getenv("VMIX_NTFY_TOPIC")); topic != "" {
		c.Notifications.NtfyTopic = topic
	}
}

func (c *Config) normalize() error {
	c.Connection.Host = strings.TrimSpace(c.Connection.Host)
	if c.Connection.Host == "" {
		c.Connection.Host = defaultHost
	}
	if c.Connection.Port == 0 {
		c.Connection.Port = defaultPort
	}

	if c.Polling.IntervalMS <= 0 {
		c.Polling.IntervalMS = defaultPollIntervalMS
	}
	if c.Polling.BackoffMaxMS <= 0 {
		c.Polling.BackoffMaxMS = defaultBackoffMaxMS
	}
	if c.Polling.BackoffMaxMS < c.Polling.IntervalMS {
		c.Polling.BackoffMaxMS = c.Polling.IntervalMS
	}
	if c.Polling.LostAfterFailures <= 0 {
		c.Polling.LostAfterFailures = defaultLostAfterFailures
	}

	if c.Commands.TimeoutMS <= 0 {
		c.Commands.TimeoutMS = defaultCommandTimeoutMS
	}
	if c.Commands.MaxRetries < 0 {
		c.Commands.MaxRetries = 0
	}
	if c.Commands.RetryBackoffMS <= 0 {
		c.Commands.RetryBackoffMS = defaultRetryBackoffMS
	}

	if strings.TrimSpace(c.API.Bind) == "" {
		c.API.Bind = defaultAPIBind
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}

	var err error
	if c.DataDir, err = expandPath(c.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.DataDir == "" {
		if c.DataDir, err = expandPath(defaultDataDir); err != nil {
			return fmt.Errorf("data_dir: %w", err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}

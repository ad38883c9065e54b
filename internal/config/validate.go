package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConnection(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateCommands(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConnection() error {
	if c.Connection.Host == "" {
		return errors.New("connection.host must be set")
	}
	if c.Connection.Port < 1 || c.Connection.Port > 65535 {
		return fmt.Errorf("connection.port must be 1-65535, got %d", c.Connection.Port)
	}
	return nil
}

func (c *Config) validatePolling() error {
	if c.Polling.IntervalMS < 100 {
		return fmt.Errorf("polling.interval_ms must be at least 100, got %d", c.Polling.IntervalMS)
	}
	if c.Polling.BackoffMaxMS < c.Polling.IntervalMS {
		return errors.New("polling.backoff_max_ms must not be below polling.interval_ms")
	}
	return nil
}

func (c *Config) validateCommands() error {
	if c.Commands.TimeoutMS < 100 {
		return fmt.Errorf("commands.timeout_ms must be at least 100, got %d", c.Commands.TimeoutMS)
	}
	if c.Commands.MaxRetries > 10 {
		return fmt.Errorf("commands.max_retries must be at most 10, got %d", c.Commands.MaxRetries)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

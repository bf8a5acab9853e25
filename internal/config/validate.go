package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var knownContentTypes = map[string]struct{}{
	"books":      {},
	"comics":     {},
	"audiobooks": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must be zero (one per CPU) or positive")
	}
	if c.Scan.ProgressIntervalMS < 0 {
		return errors.New("scan.progress_interval_ms must not be negative")
	}
	for kind := range c.Scan.Extensions {
		if _, ok := knownContentTypes[kind]; !ok {
			return fmt.Errorf("scan.extensions: unknown content type %q", kind)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := strings.TrimSpace(c.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL, got %q", topic)
	}
	return nil
}

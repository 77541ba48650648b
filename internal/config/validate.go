package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDownloads(); err != nil {
		return err
	}
	if err := c.validateInfoCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	_, port, err := net.SplitHostPort(c.Server.Bind)
	if err != nil {
		return fmt.Errorf("server.bind must be host:port, got %q: %w", c.Server.Bind, err)
	}
	if port == "" {
		return errors.New("server.bind must include a port")
	}
	return nil
}

func (c *Config) validateDownloads() error {
	d := c.Downloads
	if d.MaxConcurrent < 1 {
		return errors.New("downloads.max_concurrent must be at least 1")
	}
	for name, value := range map[string]int{
		"downloads.stall_timeout":    d.StallTimeout,
		"downloads.download_timeout": d.DownloadTimeout,
		"downloads.cleanup_grace":    d.CleanupGrace,
		"downloads.reap_interval":    d.ReapInterval,
		"downloads.socket_timeout":   d.SocketTimeout,
		"downloads.info_timeout":     d.InfoTimeout,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds", name)
		}
	}
	if d.Retries < 0 {
		return errors.New("downloads.retries must not be negative")
	}
	if d.StallTimeout > d.DownloadTimeout {
		return errors.New("downloads.stall_timeout must not exceed downloads.download_timeout")
	}
	return nil
}

func (c *Config) validateInfoCache() error {
	if c.InfoCache.Enabled && c.InfoCache.TTLMinutes < 1 {
		return errors.New("info_cache.ttl_minutes must be at least 1 when the cache is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
)

const (
	defaultBind            = "0.0.0.0:3002"
	defaultLogDir          = "~/.local/share/reel/logs"
	defaultStateDir        = "~/.local/share/reel/state"
	defaultMaxConcurrent   = 5
	defaultStallTimeout    = 30
	defaultDownloadTimeout = 300
	defaultCleanupGrace    = 30
	defaultReapInterval    = 10
	defaultRetries         = 3
	defaultSocketTimeout   = 30
	defaultInfoTimeout     = 120
	defaultInfoCacheTTL    = 15
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

func defaultAllowedOrigins() []string {
	return []string{"http://localhost:3000", "http://localhost:3001"}
}

// Downloads land in a directory under the system temp root so partially
// fetched artifacts never outlive a reboot.
func defaultDownloadDir() string {
	return filepath.Join(os.TempDir(), "reel-downloads")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:           defaultBind,
			AllowedOrigins: defaultAllowedOrigins(),
		},
		Paths: Paths{
			DownloadDir: defaultDownloadDir(),
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
		},
		Downloads: Downloads{
			MaxConcurrent:   defaultMaxConcurrent,
			StallTimeout:    defaultStallTimeout,
			DownloadTimeout: defaultDownloadTimeout,
			CleanupGrace:    defaultCleanupGrace,
			ReapInterval:    defaultReapInterval,
			Retries:         defaultRetries,
			SocketTimeout:   defaultSocketTimeout,
			InfoTimeout:     defaultInfoTimeout,
		},
		InfoCache: InfoCache{
			Enabled:    true,
			TTLMinutes: defaultInfoCacheTTL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

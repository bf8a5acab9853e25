package config

const (
	defaultDataDir            = "~/.local/share/folio"
	defaultLogDir             = "~/.local/share/folio/logs"
	defaultOwner              = "local"
	defaultProgressIntervalMS = 100
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Library: Library{
			DefaultOwner: defaultOwner,
		},
		Scan: Scan{
			ProgressIntervalMS: defaultProgressIntervalMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ScanCompleted:  true,
			ScanFailed:     true,
		},
	}
}

package config

const (
	defaultHost              = "127.0.0.1"
	defaultPort              = 8088
	defaultPollIntervalMS    = 1000
	defaultBackoffMaxMS      = 8000
	defaultLostAfterFailures = 5
	defaultCommandTimeoutMS  = 3000
	defaultMaxRetries        = 3
	defaultRetryBackoffMS    = 250
	defaultAPIBind           = "127.0.0.1:7489"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultDataDir           = "~/.local/share/vmixctl"
	defaultNtfyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Connection: Connection{
			Host: defaultHost,
			Port: defaultPort,
		},
		Polling: Polling{
			IntervalMS:        defaultPollIntervalMS,
			BackoffMaxMS:      defaultBackoffMaxMS,
			LostAfterFailures: defaultLostAfterFailures,
		},
		Commands: Commands{
			TimeoutMS:      defaultCommandTimeoutMS,
			MaxRetries:     defaultMaxRetries,
			RetryBackoffMS: defaultRetryBackoffMS,
			UseCutFallback: true,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		DataDir: defaultDataDir,
	}
}

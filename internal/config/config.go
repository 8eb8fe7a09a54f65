package config

// Config holds runtime configuration for the service.
type Config struct {
	Port             string
	APIBaseURL       string
	APIToken         string
	SocketURL        string
	GamePollInterval Duration
	ListPollInterval Duration
	WatchGameID      int64
	SnapshotDir      string
	Metrics          MetricsConfig
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:             envOrDefault(envPort, defaultPort),
		APIBaseURL:       envOrDefault(envAPIBaseURL, defaultAPIBaseURL),
		APIToken:         envOrDefault(envAPIToken, ""),
		SocketURL:        envOrDefault(envSocketURL, defaultSocketURL),
		GamePollInterval: durationEnvOrDefault(envGamePollInterval, defaultGamePollInterval),
		ListPollInterval: durationEnvOrDefault(envListPollInterval, defaultListPollInterval),
		WatchGameID:      int64EnvOrDefault(envWatchGameID, 0),
		SnapshotDir:      envOrDefault(envSnapshotDir, ""),
		Metrics:          loadMetrics(),
	}
}

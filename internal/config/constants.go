package config

import "time"

const (
	envPort             = "PORT"
	envAPIBaseURL       = "API_BASE_URL"
	envAPIToken         = "API_TOKEN"
	envSocketURL        = "SOCKET_URL"
	envGamePollInterval = "GAME_POLL_INTERVAL"
	envListPollInterval = "LIST_POLL_INTERVAL"
	envWatchGameID      = "WATCH_GAME_ID"
	envSnapshotDir      = "SNAPSHOT_DIR"
	envMetricsPort      = "METRICS_PORT"
	envMetricsOn        = "METRICS_ENABLED"
	envOtelEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService      = "OTEL_SERVICE_NAME"
	envOtelInsecure     = "OTEL_EXPORTER_OTLP_INSECURE"

	defaultPort       = "4000"
	defaultAPIBaseURL = "http://localhost:3001/api"
	defaultSocketURL  = "ws://localhost:3001/socket"
	// Single-game views refresh every 5s, the match list every 10s. Both stay
	// in place regardless of push activity for reliability on lossy mobile
	// networks; the push channel only shortens the window.
	defaultGamePollInterval = 5 * Duration(time.Second)
	defaultListPollInterval = 10 * Duration(time.Second)
	defaultMetricsPort      = "9090"
)

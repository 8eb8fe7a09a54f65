// Package server wires configuration, the remote store client, the change
// notifier, the refresh watchers and the HTTP surface into one runnable
// service.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"rugby-livescore-service/internal/auth"
	"rugby-livescore-service/internal/config"
	"rugby-livescore-service/internal/domain"
	httpserver "rugby-livescore-service/internal/http"
	"rugby-livescore-service/internal/livescore"
	"rugby-livescore-service/internal/logging"
	"rugby-livescore-service/internal/metrics"
	"rugby-livescore-service/internal/notifier"
	"rugby-livescore-service/internal/refresh"
	"rugby-livescore-service/internal/snapshots"
	"rugby-livescore-service/internal/store"
)

var metricsSetup = metrics.Setup

// feed is the notifier surface the server needs; nil means polling only.
type feed interface {
	refresh.Feed
	Connect(ctx context.Context)
	Close()
}

type watcher interface {
	Start(ctx context.Context)
	Stop()
	Trigger()
	Status() refresh.Status
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger

	metrics       *metrics.Recorder
	tokens        *auth.TokenHolder
	client        *livescore.Client
	store         *store.MemoryStore
	notifier      feed
	listWatcher   watcher
	gameWatcher   watcher
	httpServer    listener
	metricsServer listener
	metricsStop   func(context.Context) error
}

// New constructs a fully wired server from configuration.
func New(cfg config.Config, logger *slog.Logger) *Server {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger)

	tokens := auth.NewTokenHolder()
	if cfg.APIToken != "" {
		// A pre-issued token from the environment; login is still possible
		// through the auth client.
		tokens.SetAuth(domain.User{Role: domain.RoleAdmin}, cfg.APIToken)
	}

	client := livescore.NewClient(livescore.Config{
		BaseURL:     cfg.APIBaseURL,
		Tokens:      tokens,
		OnAuthError: tokens.Expire,
		Metrics:     recorder,
	})

	memoryStore := store.NewMemoryStore()

	var notify feed
	if cfg.SocketURL != "" {
		notify = notifier.NewClient(notifier.Config{
			URL:     cfg.SocketURL,
			Logger:  logger,
			Metrics: recorder,
		})
	}

	listWatcher := refresh.NewListWatcher(refresh.ListWatcherConfig{
		Client:   client,
		Store:    memoryStore,
		Feed:     feedOrNil(notify),
		Interval: cfg.ListPollInterval,
		Logger:   logger,
		Metrics:  recorder,
	})

	var gameWatcher watcher
	if cfg.WatchGameID != 0 {
		var snapWriter refresh.SnapshotWriter
		if cfg.SnapshotDir != "" {
			snapWriter = snapshots.NewWriter(cfg.SnapshotDir)
		}
		gameWatcher = refresh.NewGameWatcher(refresh.GameWatcherConfig{
			GameID:   cfg.WatchGameID,
			Client:   client,
			Store:    memoryStore,
			Snapshot: snapWriter,
			Feed:     feedOrNil(notify),
			Interval: cfg.GamePollInterval,
			Logger:   logger,
			Metrics:  recorder,
		})
	}

	httpSrv := buildHTTPServer(cfg, memoryStore, listWatcher, logger, recorder)

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		tokens:        tokens,
		client:        client,
		store:         memoryStore,
		notifier:      notify,
		listWatcher:   listWatcher,
		gameWatcher:   gameWatcher,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		metricsStop:   metricsShutdown,
	}
}

// feedOrNil converts a nil feed interface value so watchers see a plain nil.
func feedOrNil(f feed) refresh.Feed {
	if f == nil {
		return nil
	}
	return f
}

func buildHTTPServer(cfg config.Config, memoryStore *store.MemoryStore, listWatcher watcher, logger *slog.Logger, recorder *metrics.Recorder) listener {
	handler := httpserver.NewHandler(memoryStore, listWatcher, logger)
	router := httpserver.NewRouter(handler)
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	wrapped := httpserver.LoggingMiddleware(logger, recorder, router)

	return newNetListener(":"+cfg.Port, wrapped)
}

func buildMetrics(cfg config.Config, logger *slog.Logger) (*metrics.Recorder, listener, func(context.Context) error) {
	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		if logger != nil {
			logger.Warn("metrics setup failed, continuing without telemetry", "err", err)
		}
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv listener
	if handler != nil && recCfg.Enabled {
		metricsSrv = newNetListener(":"+recCfg.Port, handler)
	}
	return rec, metricsSrv, shutdown
}

// Run starts everything and waits for context cancellation to shut down
// gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)

	if s.notifier != nil {
		s.notifier.Connect(ctx)
	}
	s.listWatcher.Start(ctx)
	if s.gameWatcher != nil {
		s.gameWatcher.Start(ctx)
	}

	<-ctx.Done()
	if s.logger != nil {
		s.logger.Info("shutdown signal received")
	}

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.gameWatcher != nil {
		s.gameWatcher.Stop()
	}
	s.listWatcher.Stop()
	if s.notifier != nil {
		s.notifier.Close()
	}

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics shutdown failed", "error", err)
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
	}

	if s.logger != nil {
		s.logger.Info("shutdown complete")
	}
}

func launchServer(name string, srv listener, logger *slog.Logger, onError func(error)) {
	go func() {
		if logger != nil {
			logger.Info("starting "+name+" server", slog.String("addr", srv.Addr()))
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Warn(name+" server failed", "error", err)
			}
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}

// Store exposes the in-memory game store (useful for tests).
func (s *Server) Store() *store.MemoryStore {
	return s.store
}

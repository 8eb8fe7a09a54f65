// Package refresh re-fetches game state on two independent triggers: a
// fixed-interval poll that always stays in place, and invalidation signals
// from the real-time channel. Both feed one sequential fetch loop, so the
// store only ever sees the latest completed fetch.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rugby-livescore-service/internal/logging"
	"rugby-livescore-service/internal/metrics"
)

const defaultInterval = 10 * time.Second

// Fetcher performs one full re-fetch and replacement of the watched state.
type Fetcher func(ctx context.Context) error

// Scheduler runs a Fetcher on a fixed interval and on demand. Triggers that
// arrive while a fetch is in flight coalesce into a single follow-up fetch;
// fetches never run concurrently, so a slow stale response cannot overwrite
// a fresher one.
type Scheduler struct {
	fetch    Fetcher
	scope    string
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Recorder

	// trigger is buffered with size one; that buffer is the whole
	// coalescing state machine.
	trigger chan struct{}

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health of the refresh loop.
type Status struct {
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// IsReady reports whether the scheduler has had a recent success and is not
// failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < 3
}

// NewScheduler constructs a Scheduler with sane defaults.
func NewScheduler(fetch Fetcher, scope string, interval time.Duration, logger *slog.Logger, recorder *metrics.Recorder) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		fetch:    fetch,
		scope:    scope,
		interval: interval,
		logger:   logger,
		metrics:  recorder,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start begins the refresh loop until the context is cancelled or Stop is
// called. The first fetch runs immediately to warm state on boot.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	if s.started {
		s.startMu.Unlock()
		return
	}
	s.started = true
	s.startMu.Unlock()

	s.ticker = time.NewTicker(s.interval)

	go func() {
		logging.Info(s.logger, "refresh loop started",
			logging.FieldScope, s.scope,
			logging.FieldDurationMS, s.interval.Milliseconds(),
		)
		s.fetchOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				s.stopTicker()
				logging.Info(s.logger, "refresh loop stopped", logging.FieldScope, s.scope)
				return
			case <-s.done:
				s.stopTicker()
				logging.Info(s.logger, "refresh loop stopped", logging.FieldScope, s.scope)
				return
			case <-s.ticker.C:
				s.fetchOnce(ctx)
			case <-s.trigger:
				s.fetchOnce(ctx)
			}
		}
	}()
}

// Trigger requests an immediate re-fetch. Multiple triggers landing before
// the in-flight fetch completes collapse into one subsequent fetch.
func (s *Scheduler) Trigger() {
	s.metrics.RecordTrigger(s.scope)
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the refresh loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.stopTicker()
	})
}

func (s *Scheduler) fetchOnce(ctx context.Context) {
	start := time.Now()
	s.recordAttempt(start)

	err := s.fetch(ctx)
	s.metrics.RecordRefreshCycle(s.scope, time.Since(start), err)
	if err != nil {
		logging.Error(s.logger, "refresh fetch failed", err,
			logging.FieldScope, s.scope,
			logging.FieldDurationMS, time.Since(start).Milliseconds(),
		)
		s.recordFailure(err, start)
		return
	}
	s.recordSuccess(start)
}

func (s *Scheduler) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

func (s *Scheduler) recordAttempt(at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastAttempt = at
}

func (s *Scheduler) recordSuccess(at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.ConsecutiveFailures = 0
	s.status.LastError = ""
	s.status.LastSuccess = at
}

func (s *Scheduler) recordFailure(err error, at time.Time) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.ConsecutiveFailures++
	if err != nil {
		s.status.LastError = err.Error()
	}
	s.status.LastAttempt = at
}

// Status returns a snapshot of the scheduler's recent health.
func (s *Scheduler) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"rugby-livescore-service/internal/metrics"
)

func TestSchedulerWarmFetchOnStart(t *testing.T) {
	var calls atomic.Int32
	fetched := make(chan struct{}, 8)
	fetch := func(ctx context.Context) error {
		calls.Add(1)
		fetched <- struct{}{}
		return nil
	}

	s := NewScheduler(fetch, ScopeList, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)

	select {
	case <-fetched:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for warm fetch")
	}

	s.Stop()
	if calls.Load() != 1 {
		t.Fatalf("expected exactly the warm fetch, got %d", calls.Load())
	}
}

func TestSchedulerFetchesOnInterval(t *testing.T) {
	var calls atomic.Int32
	fetched := make(chan struct{}, 8)
	fetch := func(ctx context.Context) error {
		calls.Add(1)
		fetched <- struct{}{}
		return nil
	}

	s := NewScheduler(fetch, ScopeList, 10*time.Millisecond, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)

	// Warm fetch plus at least one ticker fire.
	for i := 0; i < 2; i++ {
		select {
		case <-fetched:
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timed out waiting for fetch %d", i+1)
		}
	}

	s.Stop()
}

func TestSchedulerCoalescesTriggersDuringInFlightFetch(t *testing.T) {
	var calls atomic.Int32
	var inFlight atomic.Int32
	release := make(chan struct{})
	fetched := make(chan struct{}, 8)

	fetch := func(ctx context.Context) error {
		if inFlight.Add(1) > 1 {
			t.Error("fetches ran concurrently")
		}
		n := calls.Add(1)
		if n == 1 {
			<-release
		}
		inFlight.Add(-1)
		fetched <- struct{}{}
		return nil
	}

	s := NewScheduler(fetch, ScopeGame, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)

	// Let the warm fetch begin and block, then pile on triggers.
	time.Sleep(20 * time.Millisecond)
	s.Trigger()
	s.Trigger()
	s.Trigger()
	close(release)

	// Warm fetch completes, then exactly one follow-up for the burst.
	for i := 0; i < 2; i++ {
		select {
		case <-fetched:
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timed out waiting for fetch %d", i+1)
		}
	}

	time.Sleep(30 * time.Millisecond)
	s.Stop()
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected burst to coalesce into one follow-up fetch, got %d fetches", got)
	}
}

func TestSchedulerTriggerAfterIdleFetchesOnce(t *testing.T) {
	var calls atomic.Int32
	fetched := make(chan struct{}, 8)
	fetch := func(ctx context.Context) error {
		calls.Add(1)
		fetched <- struct{}{}
		return nil
	}

	s := NewScheduler(fetch, ScopeGame, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	<-fetched

	s.Trigger()
	select {
	case <-fetched:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for triggered fetch")
	}

	s.Stop()
	if calls.Load() != 2 {
		t.Fatalf("expected warm fetch plus one triggered fetch, got %d", calls.Load())
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	var calls atomic.Int32
	fetched := make(chan struct{}, 8)
	fetch := func(ctx context.Context) error {
		calls.Add(1)
		fetched <- struct{}{}
		return nil
	}

	s := NewScheduler(fetch, ScopeList, 5*time.Millisecond, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	s.Start(ctx)
	<-fetched

	cancel()
	time.Sleep(20 * time.Millisecond)
	callsAfterCancel := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != callsAfterCancel {
		t.Fatalf("expected no fetches after cancel; before=%d after=%d", callsAfterCancel, calls.Load())
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, ScopeList, time.Hour, nil, nil)
	s.Stop()
	s.Stop()
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	fetched := make(chan struct{}, 8)
	fetch := func(ctx context.Context) error {
		calls.Add(1)
		fetched <- struct{}{}
		return nil
	}

	s := NewScheduler(fetch, ScopeList, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx) // should no-op
	<-fetched

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	if calls.Load() != 1 {
		t.Fatalf("expected a single warm fetch, got %d", calls.Load())
	}
}

func TestSchedulerDefaultsInterval(t *testing.T) {
	s := NewScheduler(func(ctx context.Context) error { return nil }, ScopeList, 0, nil, nil)
	if s.interval != defaultInterval {
		t.Fatalf("expected default interval %s, got %s", defaultInterval, s.interval)
	}
}

func TestSchedulerStatusTracksFailuresAndSuccess(t *testing.T) {
	fetchErr := errors.New("boom")
	var fail atomic.Bool
	fail.Store(true)
	fetch := func(ctx context.Context) error {
		if fail.Load() {
			return fetchErr
		}
		return nil
	}

	s := NewScheduler(fetch, ScopeGame, time.Hour, nil, nil)

	s.fetchOnce(context.Background())
	status := s.Status()
	if status.ConsecutiveFailures != 1 {
		t.Fatalf("expected 1 failure, got %d", status.ConsecutiveFailures)
	}
	if status.LastError != "boom" {
		t.Fatalf("expected last error recorded, got %q", status.LastError)
	}
	if !status.LastSuccess.IsZero() {
		t.Fatalf("expected no success recorded yet")
	}
	if status.IsReady() {
		t.Fatalf("expected not ready after failure without success")
	}

	fail.Store(false)
	s.fetchOnce(context.Background())
	status = s.Status()
	if status.ConsecutiveFailures != 0 {
		t.Fatalf("expected failures reset, got %d", status.ConsecutiveFailures)
	}
	if status.LastSuccess.IsZero() {
		t.Fatalf("expected success timestamp")
	}
	if !status.IsReady() {
		t.Fatalf("expected ready after success")
	}
}

func TestSchedulerNotReadyAfterRepeatedFailures(t *testing.T) {
	fetchErr := errors.New("down")
	var fail atomic.Bool
	fetch := func(ctx context.Context) error {
		if fail.Load() {
			return fetchErr
		}
		return nil
	}

	s := NewScheduler(fetch, ScopeGame, time.Hour, nil, nil)
	s.fetchOnce(context.Background())
	if !s.Status().IsReady() {
		t.Fatalf("expected ready after initial success")
	}

	fail.Store(true)
	for i := 0; i < 3; i++ {
		s.fetchOnce(context.Background())
	}
	if s.Status().IsReady() {
		t.Fatalf("expected not ready after three consecutive failures")
	}
}

func TestSchedulerRecordsMetrics(t *testing.T) {
	rec := metrics.NewRecorder()
	fetch := func(ctx context.Context) error { return nil }

	s := NewScheduler(fetch, ScopeList, time.Hour, nil, rec)
	s.fetchOnce(context.Background())
	s.Trigger()

	if got := rec.RefreshCycles(ScopeList); got != 1 {
		t.Fatalf("expected 1 refresh cycle recorded, got %d", got)
	}
	if got := rec.RefreshErrors(ScopeList); got != 0 {
		t.Fatalf("expected no refresh errors, got %d", got)
	}
	if got := rec.Triggers(ScopeList); got != 1 {
		t.Fatalf("expected 1 trigger recorded, got %d", got)
	}
}

func TestSchedulerLogsOnErrorAndSuccess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	fetchErr := errors.New("fail")
	var fail atomic.Bool
	fail.Store(true)
	fetch := func(ctx context.Context) error {
		if fail.Load() {
			return fetchErr
		}
		return nil
	}

	s := NewScheduler(fetch, ScopeGame, time.Hour, logger, nil)
	s.fetchOnce(context.Background()) // logs error
	fail.Store(false)
	s.fetchOnce(context.Background())
}

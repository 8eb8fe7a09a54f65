package metrics

import (
	"sync"
	"time"
)

type operationStats struct {
	calls           int
	errors          int
	lastCallLatency time.Duration
}

type refreshStats struct {
	cycles   int
	errors   int
	triggers int
}

// Recorder captures lightweight, in-memory metrics about store calls and
// refresh activity. It is intentionally simple so it can be swapped for a
// real backend later; when otel instruments are attached it mirrors every
// observation to them.
type Recorder struct {
	mu         sync.Mutex
	operations map[string]*operationStats
	refreshes  map[string]*refreshStats
	signals    map[string]int
	reconnects int
	otel       *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		operations: make(map[string]*operationStats),
		refreshes:  make(map[string]*refreshStats),
		signals:    make(map[string]int),
		otel:       otel,
	}
}

// RecordStoreCall tracks one remote game store call and its outcome.
func (r *Recorder) RecordStoreCall(operation string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	stats := r.ensureOperation(operation)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordStoreCall(operation, duration, err)
	}
}

// RecordRefreshCycle tracks one completed fetch cycle for a refresh scope.
func (r *Recorder) RecordRefreshCycle(scope string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	stats := r.ensureRefresh(scope)
	stats.cycles++
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordRefreshCycle(scope, duration, err)
	}
}

// RecordTrigger counts invalidation triggers requested for a scope,
// including ones coalesced into an already pending fetch.
func (r *Recorder) RecordTrigger(scope string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.ensureRefresh(scope).triggers++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordTrigger(scope)
	}
}

// RecordSignal counts real-time channel signals by event name.
func (r *Recorder) RecordSignal(event string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.signals[event]++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordSignal(event)
	}
}

// RecordReconnect counts notifier reconnect attempts.
func (r *Recorder) RecordReconnect() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.reconnects++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordReconnect()
	}
}

// RecordHTTPRequest tracks basic HTTP metrics for the serving surface.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// StoreCalls returns how many calls were recorded for an operation.
func (r *Recorder) StoreCalls(operation string) int {
	return r.operationSnapshot(operation).calls
}

// StoreErrors returns how many failed calls were recorded for an operation.
func (r *Recorder) StoreErrors(operation string) int {
	return r.operationSnapshot(operation).errors
}

// LastCallLatency returns the most recent latency observed for an operation.
func (r *Recorder) LastCallLatency(operation string) time.Duration {
	return r.operationSnapshot(operation).lastCallLatency
}

// RefreshCycles returns completed fetch cycles for a scope.
func (r *Recorder) RefreshCycles(scope string) int {
	return r.refreshSnapshot(scope).cycles
}

// RefreshErrors returns failed fetch cycles for a scope.
func (r *Recorder) RefreshErrors(scope string) int {
	return r.refreshSnapshot(scope).errors
}

// Triggers returns invalidation triggers recorded for a scope.
func (r *Recorder) Triggers(scope string) int {
	return r.refreshSnapshot(scope).triggers
}

// Signals returns how many signals were seen for an event name.
func (r *Recorder) Signals(event string) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signals[event]
}

// Reconnects returns how many notifier reconnects were recorded.
func (r *Recorder) Reconnects() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconnects
}

func (r *Recorder) ensureOperation(operation string) *operationStats {
	stats, ok := r.operations[operation]
	if !ok {
		stats = &operationStats{}
		r.operations[operation] = stats
	}
	return stats
}

func (r *Recorder) ensureRefresh(scope string) *refreshStats {
	stats, ok := r.refreshes[scope]
	if !ok {
		stats = &refreshStats{}
		r.refreshes[scope] = stats
	}
	return stats
}

func (r *Recorder) operationSnapshot(operation string) operationStats {
	if r == nil {
		return operationStats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stats, ok := r.operations[operation]; ok {
		return *stats
	}
	return operationStats{}
}

func (r *Recorder) refreshSnapshot(scope string) refreshStats {
	if r == nil {
		return refreshStats{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if stats, ok := r.refreshes[scope]; ok {
		return *stats
	}
	return refreshStats{}
}

package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/logging"
	"rugby-livescore-service/internal/matchlist"
	"rugby-livescore-service/internal/metrics"
	"rugby-livescore-service/internal/notifier"
	"rugby-livescore-service/internal/snapshots"
	"rugby-livescore-service/internal/store"
	"rugby-livescore-service/internal/timeline"
)

// Scope names used for logs and metrics.
const (
	ScopeGame = "game"
	ScopeList = "list"
)

// GameClient fetches one game aggregate.
type GameClient interface {
	GetGame(ctx context.Context, id int64) (domain.Game, error)
}

// ListClient fetches the games list.
type ListClient interface {
	ListGames(ctx context.Context) ([]domain.Game, error)
}

// Feed is the subset of the notifier a watcher needs. A nil Feed degrades
// to pure polling.
type Feed interface {
	Subscribe() (<-chan notifier.Signal, func())
	JoinGame(id int64)
	LeaveGame(id int64)
}

// SnapshotWriter persists reconciled game state to disk.
type SnapshotWriter interface {
	WriteGameSnapshot(game domain.Game, entries []timeline.Entry) error
}

// SnapshotReader loads a previously persisted game snapshot. A SnapshotWriter
// that also implements this seeds the store on startup, so the watcher serves
// the last known state while the first fetch is still in flight.
type SnapshotReader interface {
	ReadGameSnapshot(gameID int64) (snapshots.GameSnapshot, error)
}

// GameWatcher keeps one game aggregate fresh: a fixed poll, plus immediate
// re-fetches whenever the feed signals a change for this game id.
type GameWatcher struct {
	gameID int64
	client GameClient
	store  *store.MemoryStore
	snap   SnapshotWriter
	feed   Feed
	logger *slog.Logger

	sched  *Scheduler
	cancel func()

	stopOnce sync.Once
	watchCtx context.Context
	ctxStop  context.CancelFunc
}

// GameWatcherConfig bundles GameWatcher dependencies.
type GameWatcherConfig struct {
	GameID   int64
	Client   GameClient
	Store    *store.MemoryStore
	Snapshot SnapshotWriter
	Feed     Feed
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// NewGameWatcher constructs a watcher for a single game.
func NewGameWatcher(cfg GameWatcherConfig) *GameWatcher {
	w := &GameWatcher{
		gameID: cfg.GameID,
		client: cfg.Client,
		store:  cfg.Store,
		snap:   cfg.Snapshot,
		feed:   cfg.Feed,
		logger: cfg.Logger,
	}
	w.sched = NewScheduler(w.fetch, ScopeGame, cfg.Interval, cfg.Logger, cfg.Metrics)
	return w
}

// Start seeds the store from any persisted snapshot, joins the game's room
// and begins refreshing.
func (w *GameWatcher) Start(ctx context.Context) {
	w.watchCtx, w.ctxStop = context.WithCancel(ctx)

	if reader, ok := w.snap.(SnapshotReader); ok {
		if snap, err := reader.ReadGameSnapshot(w.gameID); err == nil {
			w.store.SetGame(snap.Game)
			logging.Info(w.logger, "store seeded from snapshot",
				logging.FieldGameID, w.gameID, "generated_at", snap.GeneratedAt)
		}
	}

	if w.feed != nil {
		w.feed.JoinGame(w.gameID)
		signals, cancel := w.feed.Subscribe()
		w.cancel = cancel
		go w.forwardSignals(signals)
	}

	w.sched.Start(w.watchCtx)
}

// Stop leaves the room and halts refreshing. Results of fetches still in
// flight are discarded via the cancelled context.
func (w *GameWatcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		if w.feed != nil {
			w.feed.LeaveGame(w.gameID)
		}
		w.sched.Stop()
		if w.ctxStop != nil {
			w.ctxStop()
		}
	})
}

// Trigger requests an immediate re-fetch, used after local mutations.
func (w *GameWatcher) Trigger() {
	w.sched.Trigger()
}

// Status exposes refresh health.
func (w *GameWatcher) Status() Status {
	return w.sched.Status()
}

func (w *GameWatcher) forwardSignals(signals <-chan notifier.Signal) {
	for sig := range signals {
		if sig.GameID != w.gameID {
			continue
		}
		w.sched.Trigger()
	}
}

func (w *GameWatcher) fetch(ctx context.Context) error {
	game, err := w.client.GetGame(ctx, w.gameID)
	if err != nil {
		return err
	}
	// The watcher may have been torn down while the fetch was in flight;
	// never apply a result after teardown.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	w.store.SetGame(game)
	if w.snap != nil {
		entries := timeline.Reconcile(game.ScoreUpdates, game.GameEvents)
		if err := w.snap.WriteGameSnapshot(game, entries); err != nil {
			logging.Error(w.logger, "game snapshot write failed", err, logging.FieldGameID, w.gameID)
		}
	}
	return nil
}

// ListWatcher keeps the games list fresh and maintains the real-time room
// subscriptions for whichever games are currently live.
type ListWatcher struct {
	client ListClient
	store  *store.MemoryStore
	feed   Feed
	logger *slog.Logger

	sched  *Scheduler
	cancel func()

	mu     sync.Mutex
	joined []int64

	stopOnce sync.Once
	watchCtx context.Context
	ctxStop  context.CancelFunc
}

// ListWatcherConfig bundles ListWatcher dependencies.
type ListWatcherConfig struct {
	Client   ListClient
	Store    *store.MemoryStore
	Feed     Feed
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
}

// NewListWatcher constructs a watcher for the games list.
func NewListWatcher(cfg ListWatcherConfig) *ListWatcher {
	w := &ListWatcher{
		client: cfg.Client,
		store:  cfg.Store,
		feed:   cfg.Feed,
		logger: cfg.Logger,
	}
	w.sched = NewScheduler(w.fetch, ScopeList, cfg.Interval, cfg.Logger, cfg.Metrics)
	return w
}

// Start begins refreshing the list. Any change signal re-fetches; the list
// view cares about every game.
func (w *ListWatcher) Start(ctx context.Context) {
	w.watchCtx, w.ctxStop = context.WithCancel(ctx)

	if w.feed != nil {
		signals, cancel := w.feed.Subscribe()
		w.cancel = cancel
		go func() {
			for range signals {
				w.sched.Trigger()
			}
		}()
	}

	w.sched.Start(w.watchCtx)
}

// Stop halts refreshing and leaves every joined room.
func (w *ListWatcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		w.mu.Lock()
		joined := w.joined
		w.joined = nil
		w.mu.Unlock()
		if w.feed != nil {
			for _, id := range joined {
				w.feed.LeaveGame(id)
			}
		}
		w.sched.Stop()
		if w.ctxStop != nil {
			w.ctxStop()
		}
	})
}

// Trigger requests an immediate re-fetch.
func (w *ListWatcher) Trigger() {
	w.sched.Trigger()
}

// Status exposes refresh health.
func (w *ListWatcher) Status() Status {
	return w.sched.Status()
}

func (w *ListWatcher) fetch(ctx context.Context) error {
	games, err := w.client.ListGames(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	w.store.SetGames(games)
	w.reconcileRooms(games)
	return nil
}

// reconcileRooms recomputes the live-game subscription set whenever the
// list changes, joining new live games and symmetrically leaving games
// that stopped being live.
func (w *ListWatcher) reconcileRooms(games []domain.Game) {
	if w.feed == nil {
		return
	}

	liveIDs := matchlist.LiveIDs(games)

	w.mu.Lock()
	join, leave := matchlist.SubscriptionDiff(w.joined, liveIDs)
	w.joined = liveIDs
	w.mu.Unlock()

	for _, id := range join {
		w.feed.JoinGame(id)
	}
	for _, id := range leave {
		w.feed.LeaveGame(id)
	}
	if len(join) > 0 || len(leave) > 0 {
		logging.Info(w.logger, "live room subscriptions updated",
			"joined", len(join), "left", len(leave), logging.FieldCount, len(liveIDs))
	}
}

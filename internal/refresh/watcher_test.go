package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/notifier"
	"rugby-livescore-service/internal/snapshots"
	"rugby-livescore-service/internal/store"
	"rugby-livescore-service/internal/timeline"
)

type stubGameClient struct {
	mu    sync.Mutex
	game  domain.Game
	err   error
	calls atomic.Int32
}

func (c *stubGameClient) set(game domain.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.game = game
}

func (c *stubGameClient) GetGame(ctx context.Context, id int64) (domain.Game, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return domain.Game{}, c.err
	}
	return c.game, nil
}

type stubListClient struct {
	mu    sync.Mutex
	games []domain.Game
	err   error
	calls atomic.Int32
}

func (c *stubListClient) set(games []domain.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games = games
}

func (c *stubListClient) ListGames(ctx context.Context) ([]domain.Game, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.games, nil
}

type stubFeed struct {
	mu      sync.Mutex
	joined  []int64
	left    []int64
	signals chan notifier.Signal
}

func newStubFeed() *stubFeed {
	return &stubFeed{signals: make(chan notifier.Signal, 16)}
}

func (f *stubFeed) Subscribe() (<-chan notifier.Signal, func()) {
	return f.signals, func() { close(f.signals) }
}

func (f *stubFeed) JoinGame(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, id)
}

func (f *stubFeed) LeaveGame(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, id)
}

func (f *stubFeed) joinedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.joined...)
}

func (f *stubFeed) leftIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.left...)
}

type stubSnapshotWriter struct {
	mu      sync.Mutex
	games   []domain.Game
	entries [][]timeline.Entry
	err     error
}

func (w *stubSnapshotWriter) WriteGameSnapshot(game domain.Game, entries []timeline.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.games = append(w.games, game)
	w.entries = append(w.entries, entries)
	return nil
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestGameWatcherFetchesIntoStore(t *testing.T) {
	client := &stubGameClient{}
	client.set(domain.Game{ID: 42, Status: domain.StatusLive, HomeScore: 7})
	st := store.NewMemoryStore()

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    st,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		g, ok := st.GetGame(42)
		return ok && g.HomeScore == 7
	}, "store never saw the fetched game")
}

func TestGameWatcherJoinsAndLeavesRoom(t *testing.T) {
	client := &stubGameClient{}
	client.set(domain.Game{ID: 42, Status: domain.StatusLive})
	feed := newStubFeed()

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    store.NewMemoryStore(),
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())

	joined := feed.joinedIDs()
	if len(joined) != 1 || joined[0] != 42 {
		t.Fatalf("expected join for game 42, got %v", joined)
	}

	w.Stop()
	left := feed.leftIDs()
	if len(left) != 1 || left[0] != 42 {
		t.Fatalf("expected leave for game 42, got %v", left)
	}
}

func TestGameWatcherRefetchesOnMatchingSignal(t *testing.T) {
	client := &stubGameClient{}
	client.set(domain.Game{ID: 42, Status: domain.StatusLive, HomeScore: 0})
	feed := newStubFeed()
	st := store.NewMemoryStore()

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    st,
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return client.calls.Load() >= 1 }, "warm fetch never ran")

	client.set(domain.Game{ID: 42, Status: domain.StatusLive, HomeScore: 5})
	feed.signals <- notifier.Signal{Event: notifier.EventScoreUpdate, GameID: 42}

	waitFor(t, func() bool {
		g, ok := st.GetGame(42)
		return ok && g.HomeScore == 5
	}, "signal never produced a re-fetch")
}

func TestGameWatcherIgnoresOtherGamesSignals(t *testing.T) {
	client := &stubGameClient{}
	client.set(domain.Game{ID: 42, Status: domain.StatusLive})
	feed := newStubFeed()

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    store.NewMemoryStore(),
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return client.calls.Load() >= 1 }, "warm fetch never ran")
	before := client.calls.Load()

	feed.signals <- notifier.Signal{Event: notifier.EventScoreUpdate, GameID: 99}
	time.Sleep(50 * time.Millisecond)

	if client.calls.Load() != before {
		t.Fatalf("expected signal for another game to be ignored; before=%d after=%d", before, client.calls.Load())
	}
}

func TestGameWatcherWritesSnapshots(t *testing.T) {
	client := &stubGameClient{}
	client.set(domain.Game{
		ID:     42,
		Status: domain.StatusLive,
		ScoreUpdates: []domain.ScoreUpdate{
			{ID: 3, Team: domain.TeamHome, ScoreType: domain.ScoreTry, Points: 5},
		},
		GameEvents: []domain.GameEvent{
			{ID: 1, EventType: "kickoff"},
		},
	})
	snap := &stubSnapshotWriter{}

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    store.NewMemoryStore(),
		Snapshot: snap,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		snap.mu.Lock()
		defer snap.mu.Unlock()
		return len(snap.games) >= 1
	}, "snapshot never written")

	snap.mu.Lock()
	defer snap.mu.Unlock()
	if snap.games[0].ID != 42 {
		t.Fatalf("unexpected snapshot game: %+v", snap.games[0])
	}
	if len(snap.entries[0]) != 2 {
		t.Fatalf("expected reconciled timeline in snapshot, got %d entries", len(snap.entries[0]))
	}
}

func TestGameWatcherSeedsStoreFromSnapshot(t *testing.T) {
	writer := snapshots.NewWriter(t.TempDir())
	saved := domain.Game{ID: 42, Status: domain.StatusLive, HomeScore: 12, AwayScore: 7}
	if err := writer.WriteGameSnapshot(saved, nil); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	client := &stubGameClient{err: errors.New("store unreachable")}
	st := store.NewMemoryStore()

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    st,
		Snapshot: writer,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	g, ok := st.GetGame(42)
	if !ok {
		t.Fatal("store not seeded from snapshot before first fetch")
	}
	if g.HomeScore != 12 || g.AwayScore != 7 {
		t.Fatalf("seeded game mismatch: %+v", g)
	}
}

func TestGameWatcherStartsColdWithoutSnapshot(t *testing.T) {
	writer := snapshots.NewWriter(t.TempDir())
	client := &stubGameClient{err: errors.New("store unreachable")}
	st := store.NewMemoryStore()

	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    st,
		Snapshot: writer,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	if _, ok := st.GetGame(42); ok {
		t.Fatal("expected empty store when no snapshot exists")
	}
}

func TestGameWatcherStopIsIdempotent(t *testing.T) {
	client := &stubGameClient{}
	feed := newStubFeed()
	w := NewGameWatcher(GameWatcherConfig{
		GameID:   42,
		Client:   client,
		Store:    store.NewMemoryStore(),
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	w.Stop()
	w.Stop()
	if len(feed.leftIDs()) != 1 {
		t.Fatalf("expected exactly one leave, got %v", feed.leftIDs())
	}
}

func TestListWatcherFetchesIntoStore(t *testing.T) {
	client := &stubListClient{}
	client.set([]domain.Game{
		{ID: 1, Status: domain.StatusScheduled},
		{ID: 2, Status: domain.StatusLive},
	})
	st := store.NewMemoryStore()

	w := NewListWatcher(ListWatcherConfig{
		Client:   client,
		Store:    st,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return len(st.ListGames()) == 2 }, "store never saw the list")
}

func TestListWatcherReconcilesLiveRooms(t *testing.T) {
	client := &stubListClient{}
	client.set([]domain.Game{
		{ID: 1, Status: domain.StatusLive},
		{ID: 2, Status: domain.StatusScheduled},
	})
	feed := newStubFeed()
	st := store.NewMemoryStore()

	w := NewListWatcher(ListWatcherConfig{
		Client:   client,
		Store:    st,
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool {
		ids := feed.joinedIDs()
		return len(ids) == 1 && ids[0] == 1
	}, "live game never joined")

	// Game 1 finishes, game 2 goes live.
	client.set([]domain.Game{
		{ID: 1, Status: domain.StatusFulltime},
		{ID: 2, Status: domain.StatusLive},
	})
	w.Trigger()

	waitFor(t, func() bool {
		joined := feed.joinedIDs()
		left := feed.leftIDs()
		return len(joined) == 2 && joined[1] == 2 && len(left) == 1 && left[0] == 1
	}, "room set never reconciled after status change")
}

func TestListWatcherAnySignalTriggersRefetch(t *testing.T) {
	client := &stubListClient{}
	client.set([]domain.Game{{ID: 1, Status: domain.StatusScheduled}})
	feed := newStubFeed()

	w := NewListWatcher(ListWatcherConfig{
		Client:   client,
		Store:    store.NewMemoryStore(),
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())
	defer w.Stop()

	waitFor(t, func() bool { return client.calls.Load() >= 1 }, "warm fetch never ran")
	before := client.calls.Load()

	feed.signals <- notifier.Signal{Event: notifier.EventGameEvent, GameID: 7}

	waitFor(t, func() bool { return client.calls.Load() > before }, "signal never triggered a list re-fetch")
}

func TestListWatcherLeavesAllRoomsOnStop(t *testing.T) {
	client := &stubListClient{}
	client.set([]domain.Game{
		{ID: 1, Status: domain.StatusLive},
		{ID: 2, Status: domain.StatusLive},
	})
	feed := newStubFeed()

	w := NewListWatcher(ListWatcherConfig{
		Client:   client,
		Store:    store.NewMemoryStore(),
		Feed:     feed,
		Interval: time.Hour,
	})
	w.Start(context.Background())

	waitFor(t, func() bool { return len(feed.joinedIDs()) == 2 }, "live games never joined")

	w.Stop()
	left := feed.leftIDs()
	if len(left) != 2 {
		t.Fatalf("expected both rooms left on stop, got %v", left)
	}
}

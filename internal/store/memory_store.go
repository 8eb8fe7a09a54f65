package store

import (
	"sync"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/timeline"
)

// MemoryStore keeps a thread-safe snapshot of the most recently fetched
// games. Re-fetch results fully replace prior entries; stale and fresh data
// are never merged.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[int64]domain.Game
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[int64]domain.Game),
	}
}

// ListGames returns a copy of the current games.
func (s *MemoryStore) ListGames() []domain.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Game, 0, len(s.games))
	for _, g := range s.games {
		result = append(result, g)
	}
	return result
}

// GetGame retrieves a game by id.
func (s *MemoryStore) GetGame(id int64) (domain.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	return g, ok
}

// SetGames replaces the whole snapshot. Aggregates previously stored via
// SetGame keep their sub-collections only if the new list carries them.
func (s *MemoryStore) SetGames(games []domain.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = make(map[int64]domain.Game, len(games))
	for _, g := range games {
		s.games[g.ID] = g
	}
}

// SetGame replaces one aggregate.
func (s *MemoryStore) SetGame(game domain.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
}

// Timeline reconciles the stored aggregate's sub-collections into the
// display timeline. The result is computed fresh on every call; merged
// timelines are never cached.
func (s *MemoryStore) Timeline(id int64) ([]timeline.Entry, bool) {
	s.mu.RLock()
	g, ok := s.games[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return timeline.Reconcile(g.ScoreUpdates, g.GameEvents), true
}

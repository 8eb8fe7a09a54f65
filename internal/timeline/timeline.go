// Package timeline merges a game's score updates and game events into one
// displayable, causally-ordered sequence. The two collections are appended
// independently by the remote store; ids are assigned in insertion order
// and are unique across both collections, so id is the sort key. Record
// timestamps are display-only: independent collections may carry clock skew.
package timeline

import (
	"sort"
	"time"

	"rugby-livescore-service/internal/domain"
)

// Kind discriminates timeline entries.
type Kind string

const (
	KindScore Kind = "score"
	KindEvent Kind = "event"
)

// Entry is one record on the merged timeline.
type Entry interface {
	Kind() Kind
	ID() int64
	GameTime() int
	Time() time.Time
}

// ScoreEntry wraps a ScoreUpdate on the timeline.
type ScoreEntry struct {
	Score domain.ScoreUpdate
}

func (e ScoreEntry) Kind() Kind      { return KindScore }
func (e ScoreEntry) ID() int64       { return e.Score.ID }
func (e ScoreEntry) GameTime() int   { return e.Score.GameTime }
func (e ScoreEntry) Time() time.Time { return e.Score.RecordTime() }

// EventEntry wraps a GameEvent on the timeline.
type EventEntry struct {
	Event domain.GameEvent
}

func (e EventEntry) Kind() Kind      { return KindEvent }
func (e EventEntry) ID() int64       { return e.Event.ID }
func (e EventEntry) GameTime() int   { return e.Event.GameTime }
func (e EventEntry) Time() time.Time { return e.Event.RecordTime() }

// Reconcile produces the merged timeline, newest first. It is a pure
// function of its inputs and is recomputed wholesale on every refresh; the
// collections stay in the tens of entries per match, so no incremental
// update is attempted. Entries with equal ids keep score-before-event order
// from the concatenation; the store does not produce such ids.
func Reconcile(scores []domain.ScoreUpdate, events []domain.GameEvent) []Entry {
	entries := make([]Entry, 0, len(scores)+len(events))
	for _, s := range scores {
		entries = append(entries, ScoreEntry{Score: s})
	}
	for _, e := range events {
		entries = append(entries, EventEntry{Event: e})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ID() > entries[j].ID()
	})
	return entries
}

// MostRecentScore returns the score update with the highest id, or false
// when there are none. Undo operates on this entry: recency is defined by
// insertion order, never by match minute, since a late back-dated entry is
// still the most recent submission.
func MostRecentScore(scores []domain.ScoreUpdate) (domain.ScoreUpdate, bool) {
	if len(scores) == 0 {
		return domain.ScoreUpdate{}, false
	}
	latest := scores[0]
	for _, s := range scores[1:] {
		if s.ID > latest.ID {
			latest = s
		}
	}
	return latest, true
}

// Package snapshots persists the reconciled state of games to disk so the
// last known scores survive a restart of the service.
package snapshots

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/timeline"
)

// GameSnapshot is the on-disk document for one game.
type GameSnapshot struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Game        domain.Game     `json:"game"`
	Timeline    []TimelineEntry `json:"timeline"`
}

// TimelineEntry is the serialized form of a reconciled entry.
type TimelineEntry struct {
	Kind     timeline.Kind       `json:"kind"`
	Score    *domain.ScoreUpdate `json:"score,omitempty"`
	Event    *domain.GameEvent   `json:"event,omitempty"`
	GameTime int                 `json:"gameTime"`
}

// Writer persists game snapshots under a base directory.
type Writer struct {
	basePath string
	now      func() time.Time
}

// NewWriter constructs a writer rooted at basePath.
func NewWriter(basePath string) *Writer {
	return &Writer{
		basePath: basePath,
		now:      time.Now,
	}
}

// BasePath exposes the writer root path (primarily for testing).
func (w *Writer) BasePath() string {
	if w == nil {
		return ""
	}
	return w.basePath
}

// WriteGameSnapshot writes the snapshot for one game atomically. Unchanged
// content is not rewritten.
func (w *Writer) WriteGameSnapshot(game domain.Game, entries []timeline.Entry) error {
	if w == nil || w.basePath == "" {
		return fmt.Errorf("snapshot writer not configured")
	}

	snapshot := GameSnapshot{
		GeneratedAt: w.now().UTC(),
		Game:        game,
		Timeline:    SerializeTimeline(entries),
	}

	target := w.snapshotPath(game.ID)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	if existing, err := os.ReadFile(target); err == nil && sameSnapshotBody(existing, data) {
		return nil
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// ReadGameSnapshot loads a previously written snapshot.
func (w *Writer) ReadGameSnapshot(gameID int64) (GameSnapshot, error) {
	var snapshot GameSnapshot
	if w == nil || w.basePath == "" {
		return snapshot, fmt.Errorf("snapshot writer not configured")
	}
	data, err := os.ReadFile(w.snapshotPath(gameID))
	if err != nil {
		return snapshot, err
	}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (w *Writer) snapshotPath(gameID int64) string {
	return filepath.Join(w.basePath, "games", fmt.Sprintf("%d.json", gameID))
}

// SerializeTimeline converts reconciled entries into their wire form. The
// HTTP timeline endpoint shares this shape with the on-disk snapshot.
func SerializeTimeline(entries []timeline.Entry) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(entries))
	for _, entry := range entries {
		serialized := TimelineEntry{Kind: entry.Kind(), GameTime: entry.GameTime()}
		switch e := entry.(type) {
		case timeline.ScoreEntry:
			score := e.Score
			serialized.Score = &score
		case timeline.EventEntry:
			event := e.Event
			serialized.Event = &event
		}
		out = append(out, serialized)
	}
	return out
}

// sameSnapshotBody compares snapshots ignoring the generatedAt stamp so an
// unchanged game does not churn the file.
func sameSnapshotBody(existing, fresh []byte) bool {
	var a, b GameSnapshot
	if err := json.Unmarshal(existing, &a); err != nil {
		return false
	}
	if err := json.Unmarshal(fresh, &b); err != nil {
		return false
	}
	a.GeneratedAt = time.Time{}
	b.GeneratedAt = time.Time{}
	aData, errA := json.Marshal(a)
	bData, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(aData, bData)
}

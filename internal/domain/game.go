package domain

import (
	"time"

	"github.com/gobuffalo/nulls"
)

// GameStatus mirrors the store's game lifecycle states.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusLive      GameStatus = "live"
	StatusHalftime  GameStatus = "halftime"
	StatusFulltime  GameStatus = "fulltime"
	StatusCancelled GameStatus = "cancelled"
)

// Valid reports whether the status is one the store understands.
func (s GameStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusHalftime, StatusFulltime, StatusCancelled:
		return true
	}
	return false
}

// IsLive reports whether the clock is running.
func (s GameStatus) IsLive() bool {
	return s == StatusLive
}

// IsFinished reports whether no further updates are expected.
func (s GameStatus) IsFinished() bool {
	return s == StatusFulltime || s == StatusCancelled
}

// TeamSide identifies which team a record belongs to.
type TeamSide string

const (
	TeamHome TeamSide = "home"
	TeamAway TeamSide = "away"
)

func (t TeamSide) Valid() bool {
	return t == TeamHome || t == TeamAway
}

// Other returns the opposing side.
func (t TeamSide) Other() TeamSide {
	if t == TeamHome {
		return TeamAway
	}
	return TeamHome
}

// Game is the aggregate root for one match. HomeScore and AwayScore are the
// authoritative post-hoc totals maintained by the remote store; they are
// never recomputed here.
type Game struct {
	ID           int64         `json:"id"`
	HomeTeamID   nulls.Int64   `json:"homeTeamId"`
	AwayTeamID   nulls.Int64   `json:"awayTeamId"`
	HomeTeamName string        `json:"homeTeamName"`
	AwayTeamName string        `json:"awayTeamName"`
	GameDate     time.Time     `json:"gameDate"`
	Venue        nulls.String  `json:"venue"`
	Competition  nulls.String  `json:"competition"`
	Status       GameStatus    `json:"status"`
	HomeScore    int           `json:"homeScore"`
	AwayScore    int           `json:"awayScore"`
	CurrentHalf  int           `json:"currentHalf"`
	GameTime     int           `json:"gameTime"`
	ScoreUpdates []ScoreUpdate `json:"scoreUpdates,omitempty"`
	GameEvents   []GameEvent   `json:"gameEvents,omitempty"`
}

// ScoreUpdate is an atomic scoring occurrence. Records are append/delete
// only; the store assigns ids in insertion order, strictly increasing per
// game.
type ScoreUpdate struct {
	ID             int64        `json:"id"`
	Team           TeamSide     `json:"team"`
	ScoreType      ScoreType    `json:"scoreType"`
	Points         int          `json:"points"`
	PlayerName     nulls.String `json:"playerName"`
	GameTime       int          `json:"gameTime"`
	Timestamp      time.Time    `json:"timestamp"`
	CreatedAt      time.Time    `json:"createdAt"`
	HomeScoreAfter int          `json:"homeScoreAfter"`
	AwayScoreAfter int          `json:"awayScoreAfter"`
}

// RecordTime returns the display timestamp, falling back to the creation
// time when the store did not set an explicit one.
func (s ScoreUpdate) RecordTime() time.Time {
	if !s.Timestamp.IsZero() {
		return s.Timestamp
	}
	return s.CreatedAt
}

// GameEvent is a non-scoring occurrence on the match timeline. Same
// append/delete-only lifecycle as ScoreUpdate.
type GameEvent struct {
	ID          int64        `json:"id"`
	EventType   string       `json:"eventType"`
	Team        nulls.String `json:"team"`
	PlayerName  nulls.String `json:"playerName"`
	Description nulls.String `json:"description"`
	GameTime    int          `json:"gameTime"`
	Timestamp   time.Time    `json:"timestamp"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// RecordTime returns the display timestamp with creation-time fallback.
func (e GameEvent) RecordTime() time.Time {
	if !e.Timestamp.IsZero() {
		return e.Timestamp
	}
	return e.CreatedAt
}

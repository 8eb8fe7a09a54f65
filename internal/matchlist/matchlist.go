// Package matchlist filters the games list into the dashboard tabs and
// computes the live-game subscription set for the real-time channel.
package matchlist

import (
	"time"

	"rugby-livescore-service/internal/domain"
)

// Tab is one dashboard filter bucket.
type Tab struct {
	Label string
	Games []domain.Game
}

// Live returns games whose clock is running.
func Live(games []domain.Game) []domain.Game {
	var out []domain.Game
	for _, g := range games {
		if g.Status.IsLive() {
			out = append(out, g)
		}
	}
	return out
}

// Today returns games on the same calendar day as now, any status.
func Today(games []domain.Game, now time.Time) []domain.Game {
	var out []domain.Game
	y, m, d := now.Date()
	for _, g := range games {
		gy, gm, gd := g.GameDate.In(now.Location()).Date()
		if gy == y && gm == m && gd == d {
			out = append(out, g)
		}
	}
	return out
}

// Upcoming returns scheduled games that start after now.
func Upcoming(games []domain.Game, now time.Time) []domain.Game {
	var out []domain.Game
	for _, g := range games {
		if g.Status == domain.StatusScheduled && g.GameDate.After(now) {
			out = append(out, g)
		}
	}
	return out
}

// Completed returns games that reached fulltime.
func Completed(games []domain.Game) []domain.Game {
	var out []domain.Game
	for _, g := range games {
		if g.Status == domain.StatusFulltime {
			out = append(out, g)
		}
	}
	return out
}

// Tabs bundles all four dashboard buckets.
func Tabs(games []domain.Game, now time.Time) []Tab {
	return []Tab{
		{Label: "Live", Games: Live(games)},
		{Label: "Today", Games: Today(games, now)},
		{Label: "Upcoming", Games: Upcoming(games, now)},
		{Label: "Completed", Games: Completed(games)},
	}
}

// LiveIDs returns the ids of all live games, the room set the list view
// should be joined to.
func LiveIDs(games []domain.Game) []int64 {
	var ids []int64
	for _, g := range games {
		if g.Status.IsLive() {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// SubscriptionDiff computes the room joins and leaves needed to move from
// the old subscription set to the new one. Unsubscribes are symmetric:
// every id that leaves the live set is left exactly once.
func SubscriptionDiff(old, new []int64) (join, leave []int64) {
	oldSet := make(map[int64]struct{}, len(old))
	for _, id := range old {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[int64]struct{}, len(new))
	for _, id := range new {
		newSet[id] = struct{}{}
		if _, ok := oldSet[id]; !ok {
			join = append(join, id)
		}
	}
	for _, id := range old {
		if _, ok := newSet[id]; !ok {
			leave = append(leave, id)
		}
	}
	return join, leave
}

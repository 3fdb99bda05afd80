// Package leaderboard contains the derived workspace ranking model. Entries
// are recomputed from completed achievement state, never independently
// persisted; the authoritative data stays in the achievement tables.
package leaderboard

import (
	"sort"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// Rank is a 1-based position in the standings.
type Rank int

// IsValid checks that the rank is positive.
func (r Rank) IsValid() bool {
	return r > 0
}

// Int returns the underlying int value.
func (r Rank) Int() int {
	return int(r)
}

// Entry is one user's row in the standings.
type Entry struct {
	UserID            shared.UserID `json:"user_id"`
	TotalPoints       int           `json:"total_points"`
	TotalAchievements int           `json:"total_achievements"`
	LastEarnedAt      time.Time     `json:"last_earned_at"`
	Rank              Rank          `json:"rank"`
}

// Standings is an ordered workspace leaderboard.
type Standings struct {
	WorkspaceID shared.WorkspaceID `json:"workspace_id"`
	Entries     []Entry            `json:"entries"`
	ComputedAt  time.Time          `json:"computed_at"`
}

// Less implements the deterministic ordering:
// total points descending, then total achievements descending, then the
// earlier most-recent earned_at (the earlier achiever ranks higher), and
// finally user ID for a total order.
func Less(a, b Entry) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if a.TotalAchievements != b.TotalAchievements {
		return a.TotalAchievements > b.TotalAchievements
	}
	if !a.LastEarnedAt.Equal(b.LastEarnedAt) {
		return a.LastEarnedAt.Before(b.LastEarnedAt)
	}
	return a.UserID < b.UserID
}

// BuildStandings sorts the aggregated totals and assigns 1-based ranks.
func BuildStandings(workspaceID shared.WorkspaceID, totals []achievement.CompletedTotal, computedAt time.Time) *Standings {
	entries := make([]Entry, 0, len(totals))
	for _, t := range totals {
		entries = append(entries, Entry{
			UserID:            t.UserID,
			TotalPoints:       t.TotalPoints,
			TotalAchievements: t.TotalAchievements,
			LastEarnedAt:      t.LastEarnedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
	for i := range entries {
		entries[i].Rank = Rank(i + 1)
	}

	return &Standings{
		WorkspaceID: workspaceID,
		Entries:     entries,
		ComputedAt:  computedAt,
	}
}

// Top returns the first limit entries (all of them when limit <= 0 or larger
// than the standings).
func (s *Standings) Top(limit int) []Entry {
	if limit <= 0 || limit >= len(s.Entries) {
		return s.Entries
	}
	return s.Entries[:limit]
}

// FindUser locates a user's entry with a bounded linear scan over the
// already-limited standings.
// TODO: replace with an indexed ranking structure if workspace membership
// outgrows the scan (tracked as a scaling concern).
func (s *Standings) FindUser(userID shared.UserID) (Entry, bool) {
	for _, e := range s.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}

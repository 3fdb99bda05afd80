// Package stats builds the unified per-user statistics view the evaluator
// consumes: progress counters and streaks joined with value sums from raw
// event history.
package stats

import (
	"context"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/progress"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ActionStats holds the three stat dimensions for one action.
//
// Count and Streak are authoritative from the progress tracker; Value is
// summed from the raw event history's numeric payload field. The two sources
// are never mixed: an action's count is not added into its value.
type ActionStats struct {
	Count  float64 `json:"count"`
	Value  float64 `json:"value"`
	Streak int     `json:"streak"`
}

// UserStats maps actions to their aggregated stats. Actions with no progress
// record and no events are simply absent; readers treat absence as zero.
type UserStats map[shared.Action]ActionStats

// For returns the stat dimension matching a criteria variant.
// Absent actions yield zero, which never satisfies a positive threshold.
func (s UserStats) For(c achievement.Criteria) float64 {
	st, ok := s[c.Action]
	if !ok {
		return 0
	}
	switch c.Kind {
	case achievement.CriteriaCount:
		return st.Count
	case achievement.CriteriaValue:
		return st.Value
	case achievement.CriteriaStreak:
		return float64(st.Streak)
	}
	return 0
}

// EventHistory is the port to the external event-ingestion pipeline. The
// engine never originates events; it only reads the accumulated numeric
// payloads for value-based criteria.
type EventHistory interface {
	// SumValues returns the per-action sums of the numeric payload field for
	// the user within the workspace.
	SumValues(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) (map[shared.Action]float64, error)
}

// Aggregator combines progress records with event-history value sums.
type Aggregator struct {
	progressRepo progress.Repository
	history      EventHistory
}

// NewAggregator creates an Aggregator.
func NewAggregator(progressRepo progress.Repository, history EventHistory) *Aggregator {
	return &Aggregator{
		progressRepo: progressRepo,
		history:      history,
	}
}

// BuildUserStats assembles the stats view for a user in a workspace.
//
// Progress records for the same action across modules are summed into one
// count; the streak is the maximum across modules (a criteria binds to an
// action, and the strongest habit on that action is what it measures).
func (a *Aggregator) BuildUserStats(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) (UserStats, error) {
	records, err := a.progressRepo.ListByUser(ctx, userID, workspaceID, "")
	if err != nil && !shared.IsNotFound(err) {
		return nil, shared.WrapError("stats", "BuildUserStats", shared.ErrExternalService, "loading progress records", err)
	}

	result := make(UserStats, len(records))
	for _, rec := range records {
		st := result[rec.Key.Action]
		st.Count += rec.CurrentValue
		if rec.StreakCount > st.Streak {
			st.Streak = rec.StreakCount
		}
		result[rec.Key.Action] = st
	}

	sums, err := a.history.SumValues(ctx, userID, workspaceID)
	if err != nil {
		return nil, shared.WrapError("stats", "BuildUserStats", shared.ErrServiceUnavailable, "loading event history", err)
	}
	for action, sum := range sums {
		st := result[action]
		st.Value += sum
		result[action] = st
	}

	return result, nil
}

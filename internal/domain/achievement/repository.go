package achievement

import (
	"context"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogFilter narrows catalog listings.
type CatalogFilter struct {
	// Category filters by achievement category (empty = all).
	Category string

	// Type filters by achievement type (empty = all).
	Type string

	// ActiveOnly restricts to active definitions.
	ActiveOnly bool
}

// CatalogRepository defines read and seed operations on the global catalog.
type CatalogRepository interface {
	// List returns catalog definitions matching the filter.
	List(ctx context.Context, filter CatalogFilter) ([]*Achievement, error)

	// GetByID returns one definition.
	// Returns ErrAchievementNotFound if absent.
	GetByID(ctx context.Context, id string) (*Achievement, error)

	// UpsertByName inserts the definition or updates the existing one with
	// the same name, keeping its ID. Backs idempotent catalog initialization.
	UpsertByName(ctx context.Context, a *Achievement) error
}

// StateRepository defines operations on workspace-scoped completion state.
type StateRepository interface {
	// ListByUser returns all state rows for a user in a workspace.
	// A missing row is not an error: state is created lazily.
	ListByUser(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) ([]*UserAchievement, error)

	// Get returns the state for one pair.
	// Returns ErrNotFound if evaluation never considered the pair.
	Get(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string) (*UserAchievement, error)

	// TryComplete atomically transitions the pair to completed, creating the
	// row if absent. The not-yet-completed check and the completion write
	// happen in one atomic unit, so at most one caller ever observes
	// completed=true even under concurrent evaluation.
	// Returns (true, nil) if this call performed the transition,
	// (false, nil) if the pair was already completed.
	TryComplete(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, earnedAt time.Time, metadata map[string]interface{}) (bool, error)

	// UpdateProgress upserts UI-feedback progress for an incomplete pair.
	// Completed rows are never touched.
	UpdateProgress(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, pct shared.Percent, now time.Time) error

	// CompletedTotals aggregates completed state rows joined with active
	// catalog definitions, grouped by user: total points, achievement count,
	// and the most recent earned_at per user. Feeds the leaderboard.
	CompletedTotals(ctx context.Context, workspaceID shared.WorkspaceID, limit int) ([]CompletedTotal, error)
}

// CompletedTotal is one user's aggregate over completed, active achievements.
type CompletedTotal struct {
	UserID            shared.UserID
	TotalPoints       int
	TotalAchievements int
	LastEarnedAt      time.Time
}

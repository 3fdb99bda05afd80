package progress

import (
	"context"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// These interfaces define the contract for progress persistence.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// MutateFn transforms a progress record inside the per-key critical section.
// It returns the apply outcome so the caller can emit the right events.
type MutateFn func(p *Progress) (ApplyResult, error)

// Repository defines storage operations for progress records.
type Repository interface {
	// Get returns the record for a key.
	// Returns ErrProgressNotFound if no action was ever recorded for the key.
	Get(ctx context.Context, key Key) (*Progress, error)

	// Mutate fetches-or-creates the record for key and applies fn to it while
	// holding the per-key write lock, persisting the result in the same atomic
	// unit. Returns ErrProgressLockTimeout when the lock cannot be acquired;
	// a validation error from fn leaves the record untouched.
	Mutate(ctx context.Context, key Key, fn MutateFn) (*Progress, ApplyResult, error)

	// ListByUser returns all records for a user in a workspace, optionally
	// filtered by module (empty module means all modules).
	ListByUser(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, module string) ([]*Progress, error)

	// ListByUserAction returns records across modules for one action.
	// Criteria bind to actions, not modules, so evaluation reads this view.
	ListByUserAction(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, action shared.Action) ([]*Progress, error)

	// RecentlyActiveUsers returns users whose progress changed within the
	// given window, paginated. Used by the worker's re-evaluation sweep.
	RecentlyActiveUsers(ctx context.Context, workspaceID shared.WorkspaceID, withinHours int, page shared.Pagination) ([]shared.UserID, error)
}

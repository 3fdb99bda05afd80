package leaderboard

import (
	"context"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// Cache holds recently computed standings per workspace. Implementations live
// in infrastructure; a cache miss or a cache failure always degrades to a
// fresh recompute, never to an error.
type Cache interface {
	// Get returns cached standings, or ErrNotFound on a miss.
	Get(ctx context.Context, workspaceID shared.WorkspaceID) (*Standings, error)

	// Set stores standings with a TTL.
	Set(ctx context.Context, standings *Standings, ttl time.Duration) error

	// Invalidate drops the cached standings for a workspace.
	Invalidate(ctx context.Context, workspaceID shared.WorkspaceID) error
}

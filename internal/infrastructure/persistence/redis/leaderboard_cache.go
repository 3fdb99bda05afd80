package redis

import (
	"context"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/leaderboard"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// Caches computed standings per workspace as one JSON blob with a TTL. The
// standings are small (bounded by the ranking limit), so a blob read beats
// assembling entries from a sorted set on every request.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements leaderboard.Cache on Redis.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func standingsKey(workspaceID shared.WorkspaceID) string {
	return "leaderboard:" + workspaceID.String()
}

// Get returns cached standings, or ErrNotFound on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, workspaceID shared.WorkspaceID) (*leaderboard.Standings, error) {
	var standings leaderboard.Standings
	if err := c.cache.Get(ctx, standingsKey(workspaceID), &standings); err != nil {
		if err == ErrCacheMiss {
			return nil, shared.WrapError("leaderboard", "CacheGet", shared.ErrNotFound, "standings not cached", err)
		}
		return nil, err
	}
	return &standings, nil
}

// Set stores standings with a TTL.
func (c *LeaderboardCache) Set(ctx context.Context, standings *leaderboard.Standings, ttl time.Duration) error {
	return c.cache.Set(ctx, standingsKey(standings.WorkspaceID), standings, ttl)
}

// Invalidate drops the cached standings for a workspace.
func (c *LeaderboardCache) Invalidate(ctx context.Context, workspaceID shared.WorkspaceID) error {
	return c.cache.Delete(ctx, standingsKey(workspaceID))
}

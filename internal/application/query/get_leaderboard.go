package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/leaderboard"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Standings are derived from completed achievement state and cached per
// workspace. The cache is read-through: a miss or a cache failure recomputes
// from the authoritative tables.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLeaderboardLimit bounds the standings when the caller does not ask
// for a specific size.
const DefaultLeaderboardLimit = 10

// MaxLeaderboardLimit caps how many entries one query may request.
const MaxLeaderboardLimit = 100

// GetLeaderboardQuery fetches workspace standings.
type GetLeaderboardQuery struct {
	WorkspaceID shared.WorkspaceID

	// Limit is the number of top entries to return (defaulted and capped).
	Limit int

	// CallerID, when set, additionally resolves the caller's own rank even
	// when they fall outside the top entries.
	CallerID shared.UserID
}

// Validate validates the query.
func (q *GetLeaderboardQuery) Validate() error {
	if q.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("leaderboard", "GetLeaderboard", shared.ErrEmptyValue, "workspace ID is required")
	}
	if q.Limit < 0 {
		return shared.ErrInvalidLimit
	}
	return nil
}

func (q *GetLeaderboardQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if q.Limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return q.Limit
}

// LeaderboardResult is the standings view returned to callers.
type LeaderboardResult struct {
	WorkspaceID string              `json:"workspace_id"`
	Entries     []leaderboard.Entry `json:"entries"`

	// CallerEntry is the caller's own row, nil when the caller has no
	// completed achievements.
	CallerEntry *leaderboard.Entry `json:"caller_entry,omitempty"`

	ComputedAt time.Time `json:"computed_at"`
}

// GetLeaderboardHandler handles GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	state  achievement.StateRepository
	cache  leaderboard.Cache
	clock  shared.Clock
	ttl    time.Duration
	logger *slog.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. The cache may
// be nil (standings recompute on every call).
func NewGetLeaderboardHandler(
	state achievement.StateRepository,
	cache leaderboard.Cache,
	clock shared.Clock,
	ttl time.Duration,
	logger *slog.Logger,
) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &GetLeaderboardHandler{
		state:  state,
		cache:  cache,
		clock:  clock,
		ttl:    ttl,
		logger: logger.With("handler", "get_leaderboard"),
	}
}

// Handle returns the top entries plus the caller's own rank when requested.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	standings, err := h.standings(ctx, q.WorkspaceID)
	if err != nil {
		return nil, err
	}

	result := &LeaderboardResult{
		WorkspaceID: q.WorkspaceID.String(),
		Entries:     standings.Top(q.limit()),
		ComputedAt:  standings.ComputedAt,
	}
	if result.Entries == nil {
		result.Entries = []leaderboard.Entry{}
	}

	if !q.CallerID.IsEmpty() {
		if entry, ok := standings.FindUser(q.CallerID); ok {
			result.CallerEntry = &entry
		}
	}

	return result, nil
}

// Rebuild recomputes the standings and refreshes the cache, returning the
// fresh standings. The worker's rebuild job calls this on its interval.
func (h *GetLeaderboardHandler) Rebuild(ctx context.Context, workspaceID shared.WorkspaceID) (*leaderboard.Standings, error) {
	standings, err := h.compute(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	h.store(ctx, standings)
	return standings, nil
}

// standings returns cached standings when fresh, recomputing on miss or on
// any cache failure.
func (h *GetLeaderboardHandler) standings(ctx context.Context, workspaceID shared.WorkspaceID) (*leaderboard.Standings, error) {
	if h.cache != nil {
		cached, err := h.cache.Get(ctx, workspaceID)
		if err == nil {
			return cached, nil
		}
		if !shared.IsNotFound(err) {
			h.logger.Warn("leaderboard cache read failed, recomputing",
				"workspace_id", workspaceID.String(),
				"error", err,
			)
		}
	}

	standings, err := h.compute(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	h.store(ctx, standings)
	return standings, nil
}

func (h *GetLeaderboardHandler) compute(ctx context.Context, workspaceID shared.WorkspaceID) (*leaderboard.Standings, error) {
	// Always aggregate up to the maximum: the cache holds one max-bounded
	// standings blob per workspace, and Top slices the requested limit from
	// it. Per-limit standings would need per-limit cache keys.
	totals, err := h.state.CompletedTotals(ctx, workspaceID, MaxLeaderboardLimit)
	if err != nil {
		return nil, shared.WrapError("leaderboard", "GetLeaderboard", shared.ErrExternalService, "aggregating completed totals", err)
	}
	return leaderboard.BuildStandings(workspaceID, totals, h.clock.Now()), nil
}

func (h *GetLeaderboardHandler) store(ctx context.Context, standings *leaderboard.Standings) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, standings, h.ttl); err != nil {
		h.logger.Warn("leaderboard cache write failed",
			"workspace_id", standings.WorkspaceID.String(),
			"error", err,
		)
	}
}

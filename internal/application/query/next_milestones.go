package query

import (
	"context"
	"log/slog"
	"sort"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// NEXT MILESTONES QUERY
// Recommends the incomplete achievements the user is closest to, ordered by
// remaining distance ascending, ties broken by points descending so the
// richer reward surfaces first.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultMilestoneLimit is how many recommendations to surface.
const DefaultMilestoneLimit = 5

// NextMilestonesQuery fetches nearest-incomplete recommendations.
type NextMilestonesQuery struct {
	UserID      shared.UserID
	WorkspaceID shared.WorkspaceID

	// Limit caps the recommendations (defaulted when <= 0).
	Limit int
}

// Validate validates the query.
func (q *NextMilestonesQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return shared.NewDomainError("achievement", "NextMilestones", shared.ErrEmptyValue, "user ID is required")
	}
	if q.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("achievement", "NextMilestones", shared.ErrEmptyValue, "workspace ID is required")
	}
	if q.Limit < 0 {
		return shared.ErrInvalidLimit
	}
	return nil
}

// Milestone is one recommended next achievement.
type Milestone struct {
	AchievementID string  `json:"achievement_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Icon          string  `json:"icon"`
	Points        int     `json:"points"`
	Criteria      string  `json:"criteria"`
	Action        string  `json:"action"`
	Threshold     float64 `json:"threshold"`
	Current       float64 `json:"current"`
	Remaining     float64 `json:"remaining"`
	Progress      float64 `json:"progress"`
}

// NextMilestonesHandler handles NextMilestonesQuery.
type NextMilestonesHandler struct {
	catalog    achievement.CatalogRepository
	state      achievement.StateRepository
	aggregator *stats.Aggregator
	logger     *slog.Logger
}

// NewNextMilestonesHandler creates a new NextMilestonesHandler.
func NewNextMilestonesHandler(
	catalog achievement.CatalogRepository,
	state achievement.StateRepository,
	aggregator *stats.Aggregator,
	logger *slog.Logger,
) *NextMilestonesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NextMilestonesHandler{
		catalog:    catalog,
		state:      state,
		aggregator: aggregator,
		logger:     logger.With("handler", "next_milestones"),
	}
}

// Handle returns the nearest incomplete achievements among the actions the
// user has actually touched. Untouched actions are not recommended, and a
// user who completed everything gets an empty list.
func (h *NextMilestonesHandler) Handle(ctx context.Context, q NextMilestonesQuery) ([]Milestone, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	definitions, err := h.catalog.List(ctx, achievement.CatalogFilter{ActiveOnly: true})
	if err != nil {
		return nil, shared.WrapError("achievement", "NextMilestones", shared.ErrExternalService, "loading catalog", err)
	}

	completed, err := h.completedSet(ctx, q)
	if err != nil {
		return nil, err
	}

	userStats, err := h.aggregator.BuildUserStats(ctx, q.UserID, q.WorkspaceID)
	if err != nil {
		return nil, err
	}

	candidates := make([]Milestone, 0, len(definitions))
	for _, def := range definitions {
		if completed[def.ID] {
			continue
		}
		if _, touched := userStats[def.Criteria.Action]; !touched {
			continue
		}

		stat := userStats.For(def.Criteria)
		remaining := def.Criteria.Threshold - stat
		if remaining < 0 {
			remaining = 0
		}

		candidates = append(candidates, Milestone{
			AchievementID: def.ID,
			Name:          def.Name,
			Description:   def.Description,
			Icon:          def.Icon,
			Points:        def.Points.Int(),
			Criteria:      string(def.Criteria.Kind),
			Action:        def.Criteria.Action.String(),
			Threshold:     def.Criteria.Threshold,
			Current:       stat,
			Remaining:     remaining,
			Progress:      def.Criteria.ProgressPercent(stat).Float64(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Remaining != candidates[j].Remaining {
			return candidates[i].Remaining < candidates[j].Remaining
		}
		if candidates[i].Points != candidates[j].Points {
			return candidates[i].Points > candidates[j].Points
		}
		return candidates[i].AchievementID < candidates[j].AchievementID
	})

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultMilestoneLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (h *NextMilestonesHandler) completedSet(ctx context.Context, q NextMilestonesQuery) (map[string]bool, error) {
	rows, err := h.state.ListByUser(ctx, q.UserID, q.WorkspaceID)
	if err != nil {
		if shared.IsNotFound(err) {
			return map[string]bool{}, nil
		}
		return nil, shared.WrapError("achievement", "NextMilestones", shared.ErrExternalService, "loading user state", err)
	}

	completed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.IsCompleted {
			completed[row.AchievementID] = true
		}
	}
	return completed, nil
}

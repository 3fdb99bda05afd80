package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// timeLayout is the wire format for timestamps on the read side.
const timeLayout = time.RFC3339

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Catalog definitions overlaid with the caller's completion state. Missing
// state rows degrade to zero progress, never to an error.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery fetches the catalog with the user's state overlaid.
type GetAchievementsQuery struct {
	UserID      shared.UserID
	WorkspaceID shared.WorkspaceID

	// Category filters the catalog (empty = all).
	Category string

	// Type filters by achievement type (empty = all).
	Type string

	// CompletedOnly restricts to earned achievements.
	CompletedOnly bool
}

// Validate validates the query.
func (q *GetAchievementsQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return shared.NewDomainError("achievement", "GetAchievements", shared.ErrEmptyValue, "user ID is required")
	}
	if q.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("achievement", "GetAchievements", shared.ErrEmptyValue, "workspace ID is required")
	}
	return nil
}

// AchievementItem is one catalog definition with the user's state overlaid.
type AchievementItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Points      int     `json:"points"`
	Criteria    string  `json:"criteria"`
	Action      string  `json:"action"`
	Threshold   float64 `json:"threshold"`
	Progress    float64 `json:"progress"`
	IsCompleted bool    `json:"is_completed"`
	EarnedAt    string  `json:"earned_at,omitempty"`
}

// AchievementsResult is the full achievements view for one user.
type AchievementsResult struct {
	Items          []AchievementItem `json:"items"`
	TotalPoints    int               `json:"total_points"`
	CompletedCount int               `json:"completed_count"`
	TotalCount     int               `json:"total_count"`
}

// GetAchievementsHandler handles GetAchievementsQuery.
type GetAchievementsHandler struct {
	catalog achievement.CatalogRepository
	state   achievement.StateRepository
	logger  *slog.Logger
}

// NewGetAchievementsHandler creates a new GetAchievementsHandler.
func NewGetAchievementsHandler(
	catalog achievement.CatalogRepository,
	state achievement.StateRepository,
	logger *slog.Logger,
) *GetAchievementsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetAchievementsHandler{
		catalog: catalog,
		state:   state,
		logger:  logger.With("handler", "get_achievements"),
	}
}

// Handle returns the active catalog with the user's completion state overlaid.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*AchievementsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	definitions, err := h.catalog.List(ctx, achievement.CatalogFilter{Category: q.Category, Type: q.Type, ActiveOnly: true})
	if err != nil {
		return nil, shared.WrapError("achievement", "GetAchievements", shared.ErrExternalService, "loading catalog", err)
	}

	stateByID, err := h.stateByAchievement(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &AchievementsResult{Items: make([]AchievementItem, 0, len(definitions))}
	for _, def := range definitions {
		item := AchievementItem{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    def.Category,
			Type:        def.Type,
			Points:      def.Points.Int(),
			Criteria:    string(def.Criteria.Kind),
			Action:      def.Criteria.Action.String(),
			Threshold:   def.Criteria.Threshold,
		}

		if st, ok := stateByID[def.ID]; ok {
			item.Progress = st.Progress.Float64()
			item.IsCompleted = st.IsCompleted
			if st.EarnedAt != nil {
				item.EarnedAt = st.EarnedAt.UTC().Format(timeLayout)
			}
		}

		if q.CompletedOnly && !item.IsCompleted {
			continue
		}

		if item.IsCompleted {
			result.TotalPoints += item.Points
			result.CompletedCount++
		}
		result.Items = append(result.Items, item)
	}
	result.TotalCount = len(result.Items)

	return result, nil
}

// stateByAchievement loads the user's state rows keyed by achievement ID.
// A user with no state yet gets an empty map.
func (h *GetAchievementsHandler) stateByAchievement(ctx context.Context, q GetAchievementsQuery) (map[string]*achievement.UserAchievement, error) {
	rows, err := h.state.ListByUser(ctx, q.UserID, q.WorkspaceID)
	if err != nil {
		if shared.IsNotFound(err) {
			return map[string]*achievement.UserAchievement{}, nil
		}
		return nil, shared.WrapError("achievement", "GetAchievements", shared.ErrExternalService, "loading user state", err)
	}

	byID := make(map[string]*achievement.UserAchievement, len(rows))
	for _, row := range rows {
		byID[row.AchievementID] = row
	}
	return byID, nil
}

package query

import (
	"context"
	"log/slog"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// One composed view for the home screen: progress, achievements, the caller's
// leaderboard rank, and next-milestone recommendations.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery fetches the composed gamification view for one user.
type GetDashboardQuery struct {
	UserID      shared.UserID
	WorkspaceID shared.WorkspaceID
}

// Validate validates the query.
func (q *GetDashboardQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return shared.NewDomainError("dashboard", "GetDashboard", shared.ErrEmptyValue, "user ID is required")
	}
	if q.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("dashboard", "GetDashboard", shared.ErrEmptyValue, "workspace ID is required")
	}
	return nil
}

// DashboardResult is the composed home-screen view.
type DashboardResult struct {
	Progress     []ProgressItem      `json:"progress"`
	Achievements *AchievementsResult `json:"achievements"`
	Leaderboard  *LeaderboardResult  `json:"leaderboard"`
	Milestones   []Milestone         `json:"next_milestones"`
}

// GetDashboardHandler composes the read-side handlers into one view.
type GetDashboardHandler struct {
	progress     *GetProgressHandler
	achievements *GetAchievementsHandler
	leaderboard  *GetLeaderboardHandler
	milestones   *NextMilestonesHandler
	logger       *slog.Logger
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
func NewGetDashboardHandler(
	progress *GetProgressHandler,
	achievements *GetAchievementsHandler,
	leaderboard *GetLeaderboardHandler,
	milestones *NextMilestonesHandler,
	logger *slog.Logger,
) *GetDashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetDashboardHandler{
		progress:     progress,
		achievements: achievements,
		leaderboard:  leaderboard,
		milestones:   milestones,
		logger:       logger.With("handler", "get_dashboard"),
	}
}

// Handle builds the dashboard. Progress and achievements are required; the
// leaderboard and milestone sections degrade to empty on failure so one slow
// dependency cannot blank the whole screen.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	progressItems, err := h.progress.Handle(ctx, GetProgressQuery{UserID: q.UserID, WorkspaceID: q.WorkspaceID})
	if err != nil {
		return nil, err
	}

	achievements, err := h.achievements.Handle(ctx, GetAchievementsQuery{UserID: q.UserID, WorkspaceID: q.WorkspaceID})
	if err != nil {
		return nil, err
	}

	result := &DashboardResult{
		Progress:     progressItems,
		Achievements: achievements,
		Milestones:   []Milestone{},
	}

	lb, err := h.leaderboard.Handle(ctx, GetLeaderboardQuery{
		WorkspaceID: q.WorkspaceID,
		CallerID:    q.UserID,
	})
	if err != nil {
		h.logger.Warn("dashboard leaderboard section degraded",
			"workspace_id", q.WorkspaceID.String(),
			"error", err,
		)
	} else {
		result.Leaderboard = lb
	}

	milestones, err := h.milestones.Handle(ctx, NextMilestonesQuery{UserID: q.UserID, WorkspaceID: q.WorkspaceID})
	if err != nil {
		h.logger.Warn("dashboard milestones section degraded",
			"user_id", q.UserID.String(),
			"error", err,
		)
	} else {
		result.Milestones = milestones
	}

	return result, nil
}

// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATE ACHIEVEMENTS COMMAND
// Compares the user's aggregated stats against every active, not-yet-completed
// achievement. Completion is an atomic, at-most-once transition per
// (user, workspace, achievement) pair, so re-running with unchanged stats is a
// no-op and concurrent runs cannot double-award.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateCommand identifies whose achievements to (re)check.
type EvaluateCommand struct {
	UserID      shared.UserID
	WorkspaceID shared.WorkspaceID

	// CorrelationID for tracing (optional).
	CorrelationID string
}

// Validate validates the command.
func (c *EvaluateCommand) Validate() error {
	if c.UserID.IsEmpty() {
		return shared.NewDomainError("achievement", "Evaluate", shared.ErrEmptyValue, "user ID is required")
	}
	if c.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("achievement", "Evaluate", shared.ErrEmptyValue, "workspace ID is required")
	}
	return nil
}

// EvaluateHandler handles EvaluateCommand.
type EvaluateHandler struct {
	catalog    achievement.CatalogRepository
	state      achievement.StateRepository
	aggregator *stats.Aggregator
	eventBus   shared.EventPublisher
	clock      shared.Clock
	logger     *slog.Logger
}

// NewEvaluateHandler creates a new EvaluateHandler.
func NewEvaluateHandler(
	catalog achievement.CatalogRepository,
	state achievement.StateRepository,
	aggregator *stats.Aggregator,
	eventBus shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *EvaluateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluateHandler{
		catalog:    catalog,
		state:      state,
		aggregator: aggregator,
		eventBus:   eventBus,
		clock:      clock,
		logger:     logger.With("handler", "evaluate_achievements"),
	}
}

// Handle runs one evaluation pass and returns the newly earned achievements.
// Invoking it again with unchanged stats returns an empty list.
func (h *EvaluateHandler) Handle(ctx context.Context, cmd EvaluateCommand) ([]achievement.Earned, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	definitions, err := h.catalog.List(ctx, achievement.CatalogFilter{ActiveOnly: true})
	if err != nil {
		return nil, shared.WrapError("achievement", "Evaluate", shared.ErrExternalService, "loading catalog", err)
	}
	if len(definitions) == 0 {
		return nil, nil
	}

	completed, err := h.completedSet(ctx, cmd)
	if err != nil {
		return nil, err
	}

	userStats, err := h.aggregator.BuildUserStats(ctx, cmd.UserID, cmd.WorkspaceID)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	var earned []achievement.Earned

	for _, def := range definitions {
		if completed[def.ID] {
			continue
		}

		stat := userStats.For(def.Criteria)
		if !def.Criteria.Satisfied(stat) {
			// UI feedback only; completed rows are never touched.
			pct := def.Criteria.ProgressPercent(stat)
			if err := h.state.UpdateProgress(ctx, cmd.UserID, cmd.WorkspaceID, def.ID, pct, now); err != nil {
				h.logger.Warn("failed to update achievement progress",
					"achievement_id", def.ID,
					"user_id", cmd.UserID.String(),
					"error", err,
				)
			}
			continue
		}

		// The not-yet-completed check and the completion write are one atomic
		// unit inside TryComplete: at most one concurrent evaluator wins.
		won, err := h.state.TryComplete(ctx, cmd.UserID, cmd.WorkspaceID, def.ID, now, map[string]interface{}{
			"stat":      stat,
			"threshold": def.Criteria.Threshold,
		})
		if err != nil {
			return earned, shared.WrapError("achievement", "Evaluate", shared.ErrExternalService, "completing achievement", err)
		}
		if !won {
			continue
		}

		st, err := h.state.Get(ctx, cmd.UserID, cmd.WorkspaceID, def.ID)
		if err != nil {
			return earned, shared.WrapError("achievement", "Evaluate", shared.ErrExternalService, "reloading completed state", err)
		}
		earned = append(earned, achievement.Earned{Achievement: def, State: st})

		h.logger.Info("achievement earned",
			"achievement", def.Name,
			"user_id", cmd.UserID.String(),
			"workspace_id", cmd.WorkspaceID.String(),
			"points", def.Points.Int(),
		)
		h.publishEarned(cmd, def, now)
	}

	return earned, nil
}

// completedSet loads the IDs of achievements the user already completed.
func (h *EvaluateHandler) completedSet(ctx context.Context, cmd EvaluateCommand) (map[string]bool, error) {
	rows, err := h.state.ListByUser(ctx, cmd.UserID, cmd.WorkspaceID)
	if err != nil {
		if shared.IsNotFound(err) {
			return map[string]bool{}, nil
		}
		return nil, shared.WrapError("achievement", "Evaluate", shared.ErrExternalService, "loading user state", err)
	}

	completed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.IsCompleted {
			completed[row.AchievementID] = true
		}
	}
	return completed, nil
}

// publishEarned emits achievement.earned. Best-effort: the completion row is
// already durable.
func (h *EvaluateHandler) publishEarned(cmd EvaluateCommand, def *achievement.Achievement, now time.Time) {
	if h.eventBus == nil {
		return
	}

	event := shared.NewAchievementEarnedEvent(
		cmd.UserID.String(),
		cmd.WorkspaceID.String(),
		def.ID,
		def.Name,
		def.Points.Int(),
		now,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}

	if err := h.eventBus.Publish(event); err != nil {
		h.logger.Error("failed to publish achievement.earned",
			"achievement_id", def.ID,
			"user_id", cmd.UserID.String(),
			"error", err,
		)
	}
}

// Package jobs contains the worker's scheduled jobs.
package jobs

import (
	"context"
	"log/slog"

	"github.com/bizhub-io/gamification-engine/internal/application/query"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// WorkspaceSource lists workspaces with recent activity. The postgres
// progress repository implements it.
type WorkspaceSource interface {
	RecentlyActiveWorkspaces(ctx context.Context, withinHours int) ([]shared.WorkspaceID, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// Refreshes the cached standings for every recently active workspace so
// dashboard reads stay warm and rank drift from TTL expiry stays bounded.
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob periodically recomputes workspace standings.
type RebuildLeaderboardJob struct {
	workspaces  WorkspaceSource
	leaderboard *query.GetLeaderboardHandler
	eventBus    shared.EventPublisher
	clock       shared.Clock
	windowHours int
	logger      *slog.Logger
}

// NewRebuildLeaderboardJob creates a new RebuildLeaderboardJob.
func NewRebuildLeaderboardJob(
	workspaces WorkspaceSource,
	leaderboard *query.GetLeaderboardHandler,
	eventBus shared.EventPublisher,
	clock shared.Clock,
	windowHours int,
	logger *slog.Logger,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if windowHours <= 0 {
		windowHours = 24
	}
	return &RebuildLeaderboardJob{
		workspaces:  workspaces,
		leaderboard: leaderboard,
		eventBus:    eventBus,
		clock:       clock,
		windowHours: windowHours,
		logger:      logger.With("job", "rebuild_leaderboard"),
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description implements scheduler.Job.
func (j *RebuildLeaderboardJob) Description() string {
	return "Recomputes and caches standings for recently active workspaces"
}

// Run implements scheduler.Job. One workspace failing does not stop the rest.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	workspaces, err := j.workspaces.RecentlyActiveWorkspaces(ctx, j.windowHours)
	if err != nil {
		return err
	}

	var rebuilt, failed int
	for _, ws := range workspaces {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		standings, err := j.leaderboard.Rebuild(ctx, ws)
		if err != nil {
			failed++
			j.logger.Error("workspace rebuild failed",
				"workspace_id", ws.String(),
				"error", err,
			)
			continue
		}
		rebuilt++

		if j.eventBus != nil {
			event := shared.NewLeaderboardRebuiltEvent(ws.String(), len(standings.Entries), j.clock.Now())
			if err := j.eventBus.Publish(event); err != nil {
				j.logger.Warn("failed to publish leaderboard.rebuilt", "error", err)
			}
		}
	}

	j.logger.Info("leaderboard rebuild pass finished",
		"workspaces", len(workspaces),
		"rebuilt", rebuilt,
		"failed", failed,
	)
	return nil
}

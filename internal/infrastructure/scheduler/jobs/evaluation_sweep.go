package jobs

import (
	"context"
	"log/slog"

	"github.com/bizhub-io/gamification-engine/internal/application/command"
	"github.com/bizhub-io/gamification-engine/internal/domain/progress"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION SWEEP JOB
// Re-runs achievement evaluation for recently active users. This closes the
// gap left when an asynchronous evaluation failed after its increment was
// already durable: evaluation is idempotent, so sweeping users whose
// evaluation already succeeded is a harmless no-op.
// ══════════════════════════════════════════════════════════════════════════════

// EvaluationSweepJob periodically re-evaluates recently active users.
type EvaluationSweepJob struct {
	workspaces   WorkspaceSource
	progressRepo progress.Repository
	evaluate     *command.EvaluateHandler
	windowHours  int
	pageSize     int
	logger       *slog.Logger
}

// NewEvaluationSweepJob creates a new EvaluationSweepJob.
func NewEvaluationSweepJob(
	workspaces WorkspaceSource,
	progressRepo progress.Repository,
	evaluate *command.EvaluateHandler,
	windowHours int,
	logger *slog.Logger,
) *EvaluationSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if windowHours <= 0 {
		windowHours = 24
	}
	return &EvaluationSweepJob{
		workspaces:   workspaces,
		progressRepo: progressRepo,
		evaluate:     evaluate,
		windowHours:  windowHours,
		pageSize:     shared.MaxPageSize,
		logger:       logger.With("job", "evaluation_sweep"),
	}
}

// Name implements scheduler.Job.
func (j *EvaluationSweepJob) Name() string {
	return "evaluation_sweep"
}

// Description implements scheduler.Job.
func (j *EvaluationSweepJob) Description() string {
	return "Re-evaluates achievements for recently active users"
}

// Run implements scheduler.Job.
func (j *EvaluationSweepJob) Run(ctx context.Context) error {
	workspaces, err := j.workspaces.RecentlyActiveWorkspaces(ctx, j.windowHours)
	if err != nil {
		return err
	}

	var swept, earned, failed int
	for _, ws := range workspaces {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for page := 1; ; page++ {
			users, err := j.progressRepo.RecentlyActiveUsers(ctx, ws, j.windowHours, shared.NewPagination(page, j.pageSize))
			if err != nil {
				j.logger.Error("listing active users failed",
					"workspace_id", ws.String(),
					"error", err,
				)
				break
			}
			if len(users) == 0 {
				break
			}

			for _, user := range users {
				results, err := j.evaluate.Handle(ctx, command.EvaluateCommand{
					UserID:      user,
					WorkspaceID: ws,
				})
				if err != nil {
					failed++
					j.logger.Error("sweep evaluation failed",
						"user_id", user.String(),
						"workspace_id", ws.String(),
						"error", err,
					)
					continue
				}
				swept++
				earned += len(results)
			}

			if len(users) < j.pageSize {
				break
			}
		}
	}

	j.logger.Info("evaluation sweep finished",
		"workspaces", len(workspaces),
		"users_swept", swept,
		"achievements_earned", earned,
		"failed", failed,
	)
	return nil
}

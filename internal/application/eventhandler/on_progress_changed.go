// Package eventhandler wires domain events to application commands.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/application/command"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// evaluationTimeout bounds one asynchronous evaluation pass.
const evaluationTimeout = 10 * time.Second

// ProgressChangedHandler runs achievement evaluation whenever progress
// changes. Evaluation failures never surface to the caller who recorded the
// action: the increment is already durable, the failure is logged and
// signalled, and the worker sweep re-checks out of band.
type ProgressChangedHandler struct {
	evaluate *command.EvaluateHandler
	eventBus shared.EventPublisher
	clock    shared.Clock
	logger   *slog.Logger
}

// NewProgressChangedHandler creates a new ProgressChangedHandler.
func NewProgressChangedHandler(
	evaluate *command.EvaluateHandler,
	eventBus shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *ProgressChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressChangedHandler{
		evaluate: evaluate,
		eventBus: eventBus,
		clock:    clock,
		logger:   logger.With("handler", "on_progress_changed"),
	}
}

// Register subscribes the handler on the bus.
func (h *ProgressChangedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventProgressChanged, h.Handle)
}

// Handle reacts to one progress.changed event.
func (h *ProgressChangedHandler) Handle(event shared.Event) error {
	pc, ok := event.(shared.ProgressChangedEvent)
	if !ok {
		h.logger.Warn("unexpected event payload", "type", event.EventType())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), evaluationTimeout)
	defer cancel()

	earned, err := h.evaluate.Handle(ctx, command.EvaluateCommand{
		UserID:      shared.UserID(pc.UserID),
		WorkspaceID: shared.WorkspaceID(pc.WorkspaceID),
	})
	if err != nil {
		h.logger.Error("achievement evaluation failed",
			"user_id", pc.UserID,
			"workspace_id", pc.WorkspaceID,
			"action", pc.Action,
			"error", err,
		)
		h.signalFailure(pc, err)
		return err
	}

	if len(earned) > 0 {
		h.logger.Info("evaluation pass earned achievements",
			"user_id", pc.UserID,
			"count", len(earned),
		)
	}
	return nil
}

// signalFailure emits achievement.evaluation_failed so the worker sweep and
// monitoring see the gap.
func (h *ProgressChangedHandler) signalFailure(pc shared.ProgressChangedEvent, cause error) {
	if h.eventBus == nil {
		return
	}
	failure := shared.NewEvaluationFailedEvent(pc.UserID, pc.WorkspaceID, cause.Error(), h.clock.Now())
	if err := h.eventBus.Publish(failure); err != nil {
		h.logger.Error("failed to publish evaluation failure", "error", err)
	}
}

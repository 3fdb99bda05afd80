// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bizhub-io/gamification-engine/internal/domain/progress"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
	"github.com/bizhub-io/gamification-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTION COMMAND
// Entry point of the engine: the external event source calls this for every
// trackable action. The increment is durable once this returns; achievement
// evaluation rides on the published progress.changed event and may fail and
// be retried without ever losing the increment.
// ══════════════════════════════════════════════════════════════════════════════

// RecordActionCommand contains the data to record one action occurrence.
type RecordActionCommand struct {
	// UserID is the acting user.
	UserID shared.UserID

	// WorkspaceID is the tenant the action happened in.
	WorkspaceID shared.WorkspaceID

	// Module is the platform module originating the action (e.g. "social").
	Module string

	// Action is the trackable action key (e.g. "post_created").
	Action shared.Action

	// Increment is added to the running counter. Must be >= 0.
	// Defaults to 1 when the caller leaves it unset.
	Increment float64

	// Target optionally (re)binds the goal for this key.
	Target *float64

	// Metadata carries opaque caller context stored with the record.
	Metadata map[string]interface{}

	// CorrelationID for tracing (generated when empty).
	CorrelationID string
}

// Validate validates the command.
func (c *RecordActionCommand) Validate() error {
	key := c.key()
	if err := key.Validate(); err != nil {
		return err
	}
	if c.Increment < 0 {
		return shared.ErrNegativeIncrement
	}
	if c.Target != nil && *c.Target <= 0 {
		return shared.NewDomainError("progress", "Validate", shared.ErrValueOutOfRange, "target must be positive")
	}
	return nil
}

func (c *RecordActionCommand) key() progress.Key {
	return progress.Key{
		UserID:      c.UserID,
		WorkspaceID: c.WorkspaceID,
		Module:      c.Module,
		Action:      c.Action,
	}
}

// RecordActionResult contains the outcome of recording an action.
type RecordActionResult struct {
	// Progress is the updated record.
	Progress *progress.Progress

	// StreakExtended indicates the streak grew by one day.
	StreakExtended bool

	// StreakReset indicates a missed day reset the streak.
	StreakReset bool
}

// HistoryAppender records one action occurrence in the append-only event
// history. Value criteria sum the stored payloads.
type HistoryAppender interface {
	Append(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, module string, action shared.Action, value float64, metadata map[string]interface{}, occurredAt time.Time) error
}

// RecordActionHandler handles RecordActionCommand.
type RecordActionHandler struct {
	progressRepo progress.Repository
	history      HistoryAppender
	eventBus     shared.EventPublisher
	clock        shared.Clock
	retrier      *retry.Retrier
	logger       *slog.Logger
}

// NewRecordActionHandler creates a new RecordActionHandler.
// The retrier bounds how long a contended per-key lock is waited on before
// the call surfaces a retryable conflict. history may be nil when value
// criteria are not in play.
func NewRecordActionHandler(
	progressRepo progress.Repository,
	history HistoryAppender,
	eventBus shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *RecordActionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordActionHandler{
		progressRepo: progressRepo,
		history:      history,
		eventBus:     eventBus,
		clock:        clock,
		retrier: retry.New(
			retry.WithMaxAttempts(4),
			retry.WithInitialDelay(25*time.Millisecond),
			retry.WithRetryIf(shared.IsConflict),
		),
		logger: logger.With("handler", "record_action"),
	}
}

// Handle records the action. The fetch-or-create, the increment, the streak
// update and the percentage recompute happen in one atomic unit per key;
// concurrent calls for the same key serialize, never interleave.
func (h *RecordActionHandler) Handle(ctx context.Context, cmd RecordActionCommand) (*RecordActionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()

	var (
		updated *progress.Progress
		applied progress.ApplyResult
	)
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		var mErr error
		updated, applied, mErr = h.progressRepo.Mutate(ctx, cmd.key(), func(p *progress.Progress) (progress.ApplyResult, error) {
			return p.Apply(cmd.Increment, cmd.Target, cmd.Metadata, now)
		})
		return mErr
	})
	if err != nil {
		if shared.IsConflict(err) {
			h.logger.Warn("progress update lock budget exhausted",
				"user_id", cmd.UserID.String(),
				"action", cmd.Action.String(),
			)
			return nil, shared.ErrProgressLockTimeout
		}
		return nil, err
	}

	h.appendHistory(ctx, cmd, now)
	h.publish(cmd, updated, now)

	return &RecordActionResult{
		Progress:       updated,
		StreakExtended: applied.StreakExtended,
		StreakReset:    applied.StreakReset,
	}, nil
}

// appendHistory stores the occurrence with its numeric payload. The payload
// comes from metadata["value"] (e.g. a deal amount), never from the counter
// increment, so count and value stats stay independent. A history failure is
// logged, not surfaced: the counter update is already durable.
func (h *RecordActionHandler) appendHistory(ctx context.Context, cmd RecordActionCommand, now time.Time) {
	if h.history == nil {
		return
	}

	err := h.history.Append(ctx, cmd.UserID, cmd.WorkspaceID, cmd.Module, cmd.Action, numericPayload(cmd.Metadata), cmd.Metadata, now)
	if err != nil {
		h.logger.Error("failed to append action event",
			"user_id", cmd.UserID.String(),
			"action", cmd.Action.String(),
			"error", err,
		)
	}
}

// numericPayload extracts the value payload from metadata.
func numericPayload(metadata map[string]interface{}) float64 {
	if metadata == nil {
		return 0
	}
	switch v := metadata["value"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// publish emits the progress.changed signal. Publishing is best-effort: the
// increment is already durable, and the worker sweep covers missed
// evaluations.
func (h *RecordActionHandler) publish(cmd RecordActionCommand, p *progress.Progress, now time.Time) {
	if h.eventBus == nil {
		return
	}

	event := shared.NewProgressChangedEvent(
		cmd.UserID.String(),
		cmd.WorkspaceID.String(),
		cmd.Module,
		cmd.Action.String(),
		cmd.Increment,
		p.CurrentValue,
		p.StreakCount,
		now,
	)
	correlationID := cmd.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)

	if err := h.eventBus.Publish(event); err != nil {
		h.logger.Error("failed to publish progress.changed",
			"user_id", cmd.UserID.String(),
			"action", cmd.Action.String(),
			"error", err,
		)
	}
}

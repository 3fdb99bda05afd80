// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"log/slog"

	"github.com/bizhub-io/gamification-engine/internal/domain/progress"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery fetches a user's progress records, optionally scoped to a
// module.
type GetProgressQuery struct {
	UserID      shared.UserID
	WorkspaceID shared.WorkspaceID

	// Module filters to one platform module; empty means all modules.
	Module string
}

// Validate validates the query.
func (q *GetProgressQuery) Validate() error {
	if q.UserID.IsEmpty() {
		return shared.NewDomainError("progress", "GetProgress", shared.ErrEmptyValue, "user ID is required")
	}
	if q.WorkspaceID.IsEmpty() {
		return shared.NewDomainError("progress", "GetProgress", shared.ErrEmptyValue, "workspace ID is required")
	}
	return nil
}

// ProgressItem is one progress record shaped for the read side.
type ProgressItem struct {
	Module       string                 `json:"module"`
	Action       string                 `json:"action"`
	CurrentValue float64                `json:"current_value"`
	TargetValue  *float64               `json:"target_value,omitempty"`
	StreakCount  int                    `json:"streak_count"`
	Percentage   float64                `json:"percentage"`
	LastActionAt string                 `json:"last_action_at,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// GetProgressHandler handles GetProgressQuery.
type GetProgressHandler struct {
	progressRepo progress.Repository
	logger       *slog.Logger
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(progressRepo progress.Repository, logger *slog.Logger) *GetProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetProgressHandler{
		progressRepo: progressRepo,
		logger:       logger.With("handler", "get_progress"),
	}
}

// Handle returns the user's progress records. A user with no recorded actions
// gets an empty list, not an error.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) ([]ProgressItem, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	records, err := h.progressRepo.ListByUser(ctx, q.UserID, q.WorkspaceID, q.Module)
	if err != nil {
		if shared.IsNotFound(err) {
			return []ProgressItem{}, nil
		}
		return nil, shared.WrapError("progress", "GetProgress", shared.ErrExternalService, "listing progress", err)
	}

	items := make([]ProgressItem, 0, len(records))
	for _, r := range records {
		items = append(items, toProgressItem(r))
	}
	return items, nil
}

func toProgressItem(r *progress.Progress) ProgressItem {
	item := ProgressItem{
		Module:       r.Key.Module,
		Action:       r.Key.Action.String(),
		CurrentValue: r.CurrentValue,
		TargetValue:  r.TargetValue,
		StreakCount:  r.StreakCount,
		Percentage:   r.Percentage.Float64(),
		Metadata:     r.Metadata,
	}
	if !r.LastActionAt.IsZero() {
		item.LastActionAt = r.LastActionAt.UTC().Format(timeLayout)
	}
	return item
}

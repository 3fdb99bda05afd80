package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT HISTORY REPOSITORY
// Append-only action event log. Value criteria sum the stored payloads; the
// progress counters never feed value stats, so nothing is double-counted.
// ══════════════════════════════════════════════════════════════════════════════

// EventHistoryRepository implements stats.EventHistory for PostgreSQL.
type EventHistoryRepository struct {
	conn *Connection
}

// NewEventHistoryRepository creates a new EventHistoryRepository.
func NewEventHistoryRepository(conn *Connection) *EventHistoryRepository {
	return &EventHistoryRepository{conn: conn}
}

// Append records one action occurrence with its numeric payload.
func (r *EventHistoryRepository) Append(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, module string, action shared.Action, value float64, metadata map[string]interface{}, occurredAt time.Time) error {
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO action_events (user_id, workspace_id, module, action, value, metadata, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, userID.String(), workspaceID.String(), module, action.String(), value, metadataJSON, occurredAt)
	if err != nil {
		return fmt.Errorf("failed to append action event: %w", err)
	}
	return nil
}

// SumValues returns per-action value sums for a user across all modules.
func (r *EventHistoryRepository) SumValues(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) (map[shared.Action]float64, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT action, COALESCE(SUM(value), 0)
		FROM action_events
		WHERE user_id = $1 AND workspace_id = $2
		GROUP BY action
	`, userID.String(), workspaceID.String())
	if err != nil {
		return nil, shared.WrapError("stats", "SumValues", shared.ErrServiceUnavailable, "querying action events", err)
	}
	defer rows.Close()

	sums := make(map[shared.Action]float64)
	for rows.Next() {
		var (
			action string
			sum    float64
		)
		if err := rows.Scan(&action, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan value sum row: %w", err)
		}
		sums[shared.Action(action)] = sum
	}
	return sums, rows.Err()
}

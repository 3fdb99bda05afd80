package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bizhub-io/gamification-engine/internal/domain/progress"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const progressColumns = `
	user_id, workspace_id, module, action,
	current_value, target_value, streak_count, last_action_at,
	percentage, metadata, created_at, updated_at
`

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Get returns the record for a key.
func (r *ProgressRepository) Get(ctx context.Context, key progress.Key) (*progress.Progress, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM user_progress
		WHERE user_id = $1 AND workspace_id = $2 AND module = $3 AND action = $4
	`, progressColumns)

	row := r.conn.QueryRow(ctx, query,
		key.UserID.String(), key.WorkspaceID.String(), key.Module, key.Action.String())

	p, err := scanProgress(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// Mutate fetches-or-creates the row for key under a row lock and applies fn,
// persisting the result in the same transaction. A NOWAIT lock failure maps
// to the retryable conflict error; a validation error from fn rolls the
// transaction back with the row untouched.
func (r *ProgressRepository) Mutate(ctx context.Context, key progress.Key, fn progress.MutateFn) (*progress.Progress, progress.ApplyResult, error) {
	var (
		updated *progress.Progress
		applied progress.ApplyResult
	)

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		// Lazy create: a no-op when the row already exists.
		_, err := tx.Exec(ctx, `
			INSERT INTO user_progress (user_id, workspace_id, module, action)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, workspace_id, module, action) DO NOTHING
		`, key.UserID.String(), key.WorkspaceID.String(), key.Module, key.Action.String())
		if err != nil {
			return fmt.Errorf("failed to ensure progress row: %w", err)
		}

		row := tx.QueryRow(ctx, fmt.Sprintf(`
			SELECT %s FROM user_progress
			WHERE user_id = $1 AND workspace_id = $2 AND module = $3 AND action = $4
			FOR UPDATE NOWAIT
		`, progressColumns),
			key.UserID.String(), key.WorkspaceID.String(), key.Module, key.Action.String())

		p, err := scanProgress(row)
		if err != nil {
			if IsLockNotAvailable(err) {
				return shared.ErrLockNotAcquired
			}
			return fmt.Errorf("failed to lock progress row: %w", err)
		}

		res, err := fn(p)
		if err != nil {
			return err
		}

		metadataJSON, err := marshalMetadata(p.Metadata)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE user_progress SET
				current_value = $5,
				target_value = $6,
				streak_count = $7,
				last_action_at = $8,
				percentage = $9,
				metadata = $10,
				updated_at = $11
			WHERE user_id = $1 AND workspace_id = $2 AND module = $3 AND action = $4
		`,
			key.UserID.String(), key.WorkspaceID.String(), key.Module, key.Action.String(),
			p.CurrentValue,
			p.TargetValue,
			p.StreakCount,
			nullableTime(p.LastActionAt),
			p.Percentage.Float64(),
			metadataJSON,
			p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to persist progress: %w", err)
		}

		updated = p
		applied = res
		return nil
	})
	if err != nil {
		return nil, progress.ApplyResult{}, err
	}
	return updated, applied, nil
}

// ListByUser returns all records for a user in a workspace, optionally
// filtered by module.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, module string) ([]*progress.Progress, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM user_progress
		WHERE user_id = $1 AND workspace_id = $2
	`, progressColumns)
	args := []interface{}{userID.String(), workspaceID.String()}

	if module != "" {
		query += " AND module = $3"
		args = append(args, module)
	}
	query += " ORDER BY module, action"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

// ListByUserAction returns records across modules for one action.
func (r *ProgressRepository) ListByUserAction(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, action shared.Action) ([]*progress.Progress, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM user_progress
		WHERE user_id = $1 AND workspace_id = $2 AND action = $3
		ORDER BY module
	`, progressColumns)

	rows, err := r.conn.Query(ctx, query, userID.String(), workspaceID.String(), action.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list progress by action: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

// RecentlyActiveUsers returns users whose progress changed within the window.
func (r *ProgressRepository) RecentlyActiveUsers(ctx context.Context, workspaceID shared.WorkspaceID, withinHours int, page shared.Pagination) ([]shared.UserID, error) {
	query := `
		SELECT user_id FROM user_progress
		WHERE workspace_id = $1 AND updated_at > NOW() - make_interval(hours => $2)
		GROUP BY user_id
		ORDER BY MAX(updated_at) DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.conn.Query(ctx, query, workspaceID.String(), withinHours, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list recently active users: %w", err)
	}
	defer rows.Close()

	var users []shared.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		users = append(users, shared.UserID(id))
	}
	return users, rows.Err()
}

// RecentlyActiveWorkspaces returns workspaces with any progress change in the
// window. Drives the worker's per-workspace jobs.
func (r *ProgressRepository) RecentlyActiveWorkspaces(ctx context.Context, withinHours int) ([]shared.WorkspaceID, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT workspace_id FROM user_progress
		WHERE updated_at > NOW() - make_interval(hours => $1)
		GROUP BY workspace_id
		ORDER BY MAX(updated_at) DESC
	`, withinHours)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently active workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []shared.WorkspaceID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan workspace ID: %w", err)
		}
		workspaces = append(workspaces, shared.WorkspaceID(id))
	}
	return workspaces, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanProgress(row pgx.Row) (*progress.Progress, error) {
	var (
		p            progress.Progress
		userID       string
		workspaceID  string
		action       string
		lastActionAt *time.Time
		metadataJSON []byte
	)

	err := row.Scan(
		&userID,
		&workspaceID,
		&p.Key.Module,
		&action,
		&p.CurrentValue,
		&p.TargetValue,
		&p.StreakCount,
		&lastActionAt,
		(*float64)(&p.Percentage),
		&metadataJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Key.UserID = shared.UserID(userID)
	p.Key.WorkspaceID = shared.WorkspaceID(workspaceID)
	p.Key.Action = shared.Action(action)
	if lastActionAt != nil {
		p.LastActionAt = *lastActionAt
	}
	if len(metadataJSON) > 0 {
		_ = json.Unmarshal(metadataJSON, &p.Metadata)
	}

	return &p, nil
}

func collectProgress(rows pgx.Rows) ([]*progress.Progress, error) {
	var records []*progress.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

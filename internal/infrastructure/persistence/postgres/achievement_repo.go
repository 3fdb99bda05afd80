package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

const achievementColumns = `
	id, name, description, icon, category, type, points,
	criteria_kind, criteria_action, criteria_threshold,
	active, created_at, updated_at
`

// CatalogRepository implements achievement.CatalogRepository for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// List returns catalog definitions matching the filter.
func (r *CatalogRepository) List(ctx context.Context, filter achievement.CatalogFilter) ([]*achievement.Achievement, error) {
	query := fmt.Sprintf("SELECT %s FROM achievements WHERE 1=1", achievementColumns)
	var args []interface{}

	if filter.ActiveOnly {
		query += " AND active"
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	query += " ORDER BY category, criteria_threshold, name"

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var definitions []*achievement.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		definitions = append(definitions, a)
	}
	return definitions, rows.Err()
}

// GetByID returns one definition.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*achievement.Achievement, error) {
	query := fmt.Sprintf("SELECT %s FROM achievements WHERE id = $1", achievementColumns)

	a, err := scanAchievement(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	return a, nil
}

// UpsertByName inserts the definition or updates the existing row with the
// same name, keeping its ID.
func (r *CatalogRepository) UpsertByName(ctx context.Context, a *achievement.Achievement) error {
	query := `
		INSERT INTO achievements (
			id, name, description, icon, category, type, points,
			criteria_kind, criteria_action, criteria_threshold,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			points = EXCLUDED.points,
			criteria_kind = EXCLUDED.criteria_kind,
			criteria_action = EXCLUDED.criteria_action,
			criteria_threshold = EXCLUDED.criteria_threshold,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Description,
		a.Icon,
		a.Category,
		a.Type,
		a.Points.Int(),
		string(a.Criteria.Kind),
		a.Criteria.Action.String(),
		a.Criteria.Threshold,
		a.Active,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert achievement %q: %w", a.Name, err)
	}
	return nil
}

func scanAchievement(row pgx.Row) (*achievement.Achievement, error) {
	var (
		a      achievement.Achievement
		kind   string
		action string
		points int
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Icon,
		&a.Category,
		&a.Type,
		&points,
		&kind,
		&action,
		&a.Criteria.Threshold,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Points = shared.Points(points)
	a.Criteria.Kind = achievement.CriteriaKind(kind)
	a.Criteria.Action = shared.Action(action)
	return &a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT STATE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

const stateColumns = `
	user_id, workspace_id, achievement_id,
	progress, is_completed, earned_at, metadata, created_at, updated_at
`

// StateRepository implements achievement.StateRepository for PostgreSQL.
type StateRepository struct {
	conn *Connection
}

// NewStateRepository creates a new StateRepository.
func NewStateRepository(conn *Connection) *StateRepository {
	return &StateRepository{conn: conn}
}

// ListByUser returns all state rows for a user in a workspace.
func (r *StateRepository) ListByUser(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID) ([]*achievement.UserAchievement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM user_achievements
		WHERE user_id = $1 AND workspace_id = $2
	`, stateColumns)

	rows, err := r.conn.Query(ctx, query, userID.String(), workspaceID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	defer rows.Close()

	var states []*achievement.UserAchievement
	for rows.Next() {
		ua, err := scanUserAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user achievement row: %w", err)
		}
		states = append(states, ua)
	}
	return states, rows.Err()
}

// Get returns the state for one pair.
func (r *StateRepository) Get(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string) (*achievement.UserAchievement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM user_achievements
		WHERE user_id = $1 AND workspace_id = $2 AND achievement_id = $3
	`, stateColumns)

	ua, err := scanUserAchievement(r.conn.QueryRow(ctx, query,
		userID.String(), workspaceID.String(), achievementID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.WrapError("achievement", "GetState", shared.ErrNotFound, "state row not found", err)
		}
		return nil, fmt.Errorf("failed to get user achievement: %w", err)
	}
	return ua, nil
}

// TryComplete atomically transitions the pair to completed. The conditional
// upsert only flips rows where is_completed is still false, so exactly one
// concurrent caller observes a row change.
func (r *StateRepository) TryComplete(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, earnedAt time.Time, metadata map[string]interface{}) (bool, error) {
	metadataJSON, err := marshalMetadata(metadata)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO user_achievements (
			user_id, workspace_id, achievement_id,
			progress, is_completed, earned_at, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, 100, TRUE, $4, $5, $4, $4)
		ON CONFLICT (user_id, workspace_id, achievement_id) DO UPDATE SET
			progress = 100,
			is_completed = TRUE,
			earned_at = EXCLUDED.earned_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		WHERE NOT user_achievements.is_completed
	`

	tag, err := r.conn.Exec(ctx, query,
		userID.String(), workspaceID.String(), achievementID, earnedAt, metadataJSON)
	if err != nil {
		return false, fmt.Errorf("failed to complete achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateProgress upserts UI-feedback progress for an incomplete pair.
func (r *StateRepository) UpdateProgress(ctx context.Context, userID shared.UserID, workspaceID shared.WorkspaceID, achievementID string, pct shared.Percent, now time.Time) error {
	query := `
		INSERT INTO user_achievements (
			user_id, workspace_id, achievement_id, progress, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, workspace_id, achievement_id) DO UPDATE SET
			progress = EXCLUDED.progress,
			updated_at = EXCLUDED.updated_at
		WHERE NOT user_achievements.is_completed
	`

	_, err := r.conn.Exec(ctx, query,
		userID.String(), workspaceID.String(), achievementID, pct.Float64(), now)
	if err != nil {
		return fmt.Errorf("failed to update achievement progress: %w", err)
	}
	return nil
}

// CompletedTotals aggregates completed state joined with active catalog
// definitions, grouped by user.
func (r *StateRepository) CompletedTotals(ctx context.Context, workspaceID shared.WorkspaceID, limit int) ([]achievement.CompletedTotal, error) {
	query := `
		SELECT
			ua.user_id,
			COALESCE(SUM(a.points), 0) AS total_points,
			COUNT(*) AS total_achievements,
			MAX(ua.earned_at) AS last_earned_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id AND a.active
		WHERE ua.workspace_id = $1 AND ua.is_completed
		GROUP BY ua.user_id
		ORDER BY total_points DESC, total_achievements DESC, last_earned_at ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, workspaceID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate completed totals: %w", err)
	}
	defer rows.Close()

	var totals []achievement.CompletedTotal
	for rows.Next() {
		var (
			t      achievement.CompletedTotal
			userID string
		)
		if err := rows.Scan(&userID, &t.TotalPoints, &t.TotalAchievements, &t.LastEarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completed total row: %w", err)
		}
		t.UserID = shared.UserID(userID)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func scanUserAchievement(row pgx.Row) (*achievement.UserAchievement, error) {
	var (
		ua           achievement.UserAchievement
		userID       string
		workspaceID  string
		metadataJSON []byte
	)

	err := row.Scan(
		&userID,
		&workspaceID,
		&ua.AchievementID,
		(*float64)(&ua.Progress),
		&ua.IsCompleted,
		&ua.EarnedAt,
		&metadataJSON,
		&ua.CreatedAt,
		&ua.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ua.UserID = shared.UserID(userID)
	ua.WorkspaceID = shared.WorkspaceID(workspaceID)
	if len(metadataJSON) > 0 {
		_ = json.Unmarshal(metadataJSON, &ua.Metadata)
	}
	return &ua, nil
}

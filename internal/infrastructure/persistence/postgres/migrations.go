package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// Embedded SQL, applied in order and tracked in schema_migrations.
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrator applies embedded migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

func (m *Migrator) ensureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx,
		fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_user_progress",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_achievements",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_action_events",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user progress table
-- Version: 001

-- One row per (user, workspace, module, action): running counter, optional
-- target, and calendar-day streak state. Rows are created lazily on the
-- first recorded action and never deleted.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id UUID NOT NULL,
    workspace_id UUID NOT NULL,
    module VARCHAR(50) NOT NULL,
    action VARCHAR(64) NOT NULL,
    current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    target_value DOUBLE PRECISION,
    streak_count INTEGER NOT NULL DEFAULT 0,
    last_action_at TIMESTAMP WITH TIME ZONE,
    percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, workspace_id, module, action),

    CONSTRAINT valid_current_value CHECK (current_value >= 0),
    CONSTRAINT valid_target_value CHECK (target_value IS NULL OR target_value > 0),
    CONSTRAINT valid_streak CHECK (streak_count >= 0),
    CONSTRAINT valid_percentage CHECK (percentage >= 0 AND percentage <= 100)
);

CREATE INDEX IF NOT EXISTS idx_user_progress_user_ws ON user_progress(user_id, workspace_id);
CREATE INDEX IF NOT EXISTS idx_user_progress_action ON user_progress(workspace_id, action);
CREATE INDEX IF NOT EXISTS idx_user_progress_updated ON user_progress(workspace_id, updated_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create achievement catalog and per-user state
-- Version: 002

-- Global catalog. Names are unique so seeding can upsert idempotently.
CREATE TABLE IF NOT EXISTS achievements (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    icon VARCHAR(50) NOT NULL DEFAULT '',
    category VARCHAR(50) NOT NULL DEFAULT '',
    type VARCHAR(50) NOT NULL DEFAULT '',
    points INTEGER NOT NULL DEFAULT 0,
    criteria_kind VARCHAR(20) NOT NULL,
    criteria_action VARCHAR(64) NOT NULL,
    criteria_threshold DOUBLE PRECISION NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_points CHECK (points >= 0),
    CONSTRAINT valid_criteria_kind CHECK (criteria_kind IN ('count', 'value', 'streak')),
    CONSTRAINT valid_threshold CHECK (criteria_threshold > 0)
);

CREATE INDEX IF NOT EXISTS idx_achievements_category ON achievements(category) WHERE active;
CREATE INDEX IF NOT EXISTS idx_achievements_action ON achievements(criteria_action) WHERE active;

-- Workspace-scoped completion state, created lazily per pair.
-- is_completed is monotonic: the false->true transition happens exactly once.
CREATE TABLE IF NOT EXISTS user_achievements (
    user_id UUID NOT NULL,
    workspace_id UUID NOT NULL,
    achievement_id UUID NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    progress DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    earned_at TIMESTAMP WITH TIME ZONE,
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, workspace_id, achievement_id),

    CONSTRAINT valid_progress CHECK (progress >= 0 AND progress <= 100),
    CONSTRAINT earned_iff_completed CHECK (is_completed = (earned_at IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_user ON user_achievements(user_id, workspace_id);
CREATE INDEX IF NOT EXISTS idx_user_achievements_completed ON user_achievements(workspace_id) WHERE is_completed;
CREATE INDEX IF NOT EXISTS idx_user_achievements_earned ON user_achievements(workspace_id, earned_at DESC) WHERE is_completed;
`

const migration002Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS achievements;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: ACTION EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create action event history
-- Version: 003

-- Append-only history of recorded actions with their numeric payloads.
-- Value criteria sum the value column; count criteria never read this table.
CREATE TABLE IF NOT EXISTS action_events (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL,
    workspace_id UUID NOT NULL,
    module VARCHAR(50) NOT NULL,
    action VARCHAR(64) NOT NULL,
    value DOUBLE PRECISION NOT NULL DEFAULT 0,
    metadata JSONB,
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_action_events_user ON action_events(user_id, workspace_id, action);
CREATE INDEX IF NOT EXISTS idx_action_events_occurred ON action_events(occurred_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS action_events;
`

package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

const (
	testUser      = shared.UserID("6f1d2c3b-4a5e-4f60-8b7c-9d0e1f2a3b4c")
	testWorkspace = shared.WorkspaceID("0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
)

func TestCriteriaValidate(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		wantErr  error
	}{
		{
			name:     "valid count",
			criteria: Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 10},
		},
		{
			name:     "valid value",
			criteria: Criteria{Kind: CriteriaValue, Action: "deal_closed", Threshold: 10000},
		},
		{
			name:     "valid streak",
			criteria: Criteria{Kind: CriteriaStreak, Action: "message_sent", Threshold: 7},
		},
		{
			name:     "unknown kind",
			criteria: Criteria{Kind: "total", Action: "post_created", Threshold: 10},
			wantErr:  shared.ErrInvalidInput,
		},
		{
			name:     "malformed action",
			criteria: Criteria{Kind: CriteriaCount, Action: "Post Created", Threshold: 10},
			wantErr:  shared.ErrInvalidInput,
		},
		{
			name:     "zero threshold",
			criteria: Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 0},
			wantErr:  shared.ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCriteriaSatisfied(t *testing.T) {
	c := Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 10}

	assert.False(t, c.Satisfied(9))
	assert.True(t, c.Satisfied(10))
	assert.True(t, c.Satisfied(11))
}

func TestCriteriaProgressPercent(t *testing.T) {
	c := Criteria{Kind: CriteriaCount, Action: "post_created", Threshold: 10}

	assert.Equal(t, shared.Percent(0), c.ProgressPercent(0))
	assert.InDelta(t, 90, c.ProgressPercent(9).Float64(), 0.0001)
	assert.Equal(t, shared.Percent(100), c.ProgressPercent(10))
	// Capped above threshold.
	assert.Equal(t, shared.Percent(100), c.ProgressPercent(50))
}

func TestCompleteIsMonotonic(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ua := NewUserAchievement(testUser, testWorkspace, "ach-1", now)

	require.NoError(t, ua.Complete(now))
	assert.True(t, ua.IsCompleted)
	assert.Equal(t, shared.Percent(100), ua.Progress)
	require.NotNil(t, ua.EarnedAt)
	assert.Equal(t, now, *ua.EarnedAt)

	// A second completion never happens.
	err := ua.Complete(now.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrStateTransition)
	assert.Equal(t, now, *ua.EarnedAt)
}

func TestUpdateProgressFrozenAfterCompletion(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ua := NewUserAchievement(testUser, testWorkspace, "ach-1", now)

	ua.UpdateProgress(40, now)
	assert.Equal(t, shared.Percent(40), ua.Progress)

	require.NoError(t, ua.Complete(now))
	ua.UpdateProgress(10, now.Add(time.Hour))
	assert.Equal(t, shared.Percent(100), ua.Progress)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	defs := DefaultCatalog()
	require.NotEmpty(t, defs)

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		assert.NoError(t, def.Criteria.Validate(), "criteria for %q", def.Name)
		assert.True(t, def.Points.IsValid(), "points for %q", def.Name)
		assert.False(t, seen[def.Name], "duplicate name %q", def.Name)
		seen[def.Name] = true
	}
}

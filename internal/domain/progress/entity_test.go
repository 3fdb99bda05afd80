package progress

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

func testKey(action shared.Action) Key {
	return Key{
		UserID:      testUser,
		WorkspaceID: testWorkspace,
		Module:      "social",
		Action:      action,
	}
}

func day(dayOfMonth, hour int) time.Time {
	return time.Date(2026, time.March, dayOfMonth, hour, 0, 0, 0, time.UTC)
}

func TestKeyValidate(t *testing.T) {
	valid := testKey("post_created")
	assert.NoError(t, valid.Validate())

	noUser := valid
	noUser.UserID = ""
	assert.Error(t, noUser.Validate())

	noModule := valid
	noModule.Module = ""
	assert.ErrorIs(t, noModule.Validate(), shared.ErrInvalidInput)

	badAction := valid
	badAction.Action = "Not An Action"
	assert.ErrorIs(t, badAction.Validate(), shared.ErrInvalidInput)
}

func TestApplyIncrementsValue(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))

	_, err := p.Apply(1, nil, nil, day(1, 9))
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.CurrentValue)

	_, err = p.Apply(2.5, nil, nil, day(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 3.5, p.CurrentValue)
}

func TestApplyRejectsNegativeIncrement(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))
	_, err := p.Apply(5, nil, nil, day(1, 9))
	require.NoError(t, err)

	before := *p
	_, err = p.Apply(-1, nil, nil, day(1, 10))
	assert.ErrorIs(t, err, shared.ErrNegativeValue)

	// No partial mutation.
	assert.Equal(t, before.CurrentValue, p.CurrentValue)
	assert.Equal(t, before.StreakCount, p.StreakCount)
	assert.Equal(t, before.LastActionAt, p.LastActionAt)
}

func TestStreakConsecutiveDays(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))

	res, err := p.Apply(1, nil, nil, day(1, 9))
	require.NoError(t, err)
	assert.True(t, res.StreakExtended)
	assert.Equal(t, 1, p.StreakCount)

	res, err = p.Apply(1, nil, nil, day(2, 23))
	require.NoError(t, err)
	assert.True(t, res.StreakExtended)
	assert.Equal(t, 2, p.StreakCount)

	res, err = p.Apply(1, nil, nil, day(3, 0))
	require.NoError(t, err)
	assert.True(t, res.StreakExtended)
	assert.Equal(t, 3, p.StreakCount)
}

func TestStreakSameDayDoesNotReincrement(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))

	_, err := p.Apply(1, nil, nil, day(1, 9))
	require.NoError(t, err)
	res, err := p.Apply(1, nil, nil, day(1, 18))
	require.NoError(t, err)

	assert.False(t, res.StreakExtended)
	assert.False(t, res.StreakReset)
	assert.Equal(t, 1, p.StreakCount)
}

func TestStreakResetsAfterMissedDay(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))

	_, err := p.Apply(1, nil, nil, day(1, 9))
	require.NoError(t, err)
	_, err = p.Apply(1, nil, nil, day(2, 9))
	require.NoError(t, err)
	assert.Equal(t, 2, p.StreakCount)

	// Day 3 has zero actions; day 4 resets to 1.
	res, err := p.Apply(1, nil, nil, day(4, 9))
	require.NoError(t, err)
	assert.True(t, res.StreakReset)
	assert.Equal(t, 1, p.StreakCount)
}

func TestStreakBrokenAsOf(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))
	_, err := p.Apply(1, nil, nil, day(1, 9))
	require.NoError(t, err)

	assert.False(t, p.StreakBrokenAsOf(day(2, 9)))
	assert.True(t, p.StreakBrokenAsOf(day(3, 9)))
}

func TestTargetOverwriteAndPercentage(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))

	// No target: percentage stays zero.
	_, err := p.Apply(4, nil, nil, day(1, 9))
	require.NoError(t, err)
	assert.Equal(t, shared.Percent(0), p.Percentage)

	target := 10.0
	res, err := p.Apply(1, &target, nil, day(1, 10))
	require.NoError(t, err)
	assert.True(t, res.TargetChanged)
	assert.InDelta(t, 50, p.Percentage.Float64(), 0.0001)

	// Late-bound goal: a different target overwrites.
	tighter := 5.0
	res, err = p.Apply(0, &tighter, nil, day(1, 11))
	require.NoError(t, err)
	assert.True(t, res.TargetChanged)
	assert.Equal(t, shared.Percent(100), p.Percentage)

	// Same target again is not a change.
	res, err = p.Apply(1, &tighter, nil, day(1, 12))
	require.NoError(t, err)
	assert.False(t, res.TargetChanged)
}

func TestPercentageClamped(t *testing.T) {
	p := New(testKey("post_created"), day(1, 9))
	target := 2.0
	_, err := p.Apply(10, &target, nil, day(1, 9))
	require.NoError(t, err)

	assert.Equal(t, shared.Percent(100), p.Percentage)
	assert.GreaterOrEqual(t, p.Percentage.Float64(), 0.0)
	assert.LessOrEqual(t, p.Percentage.Float64(), 100.0)
}

func TestRemainingToTarget(t *testing.T) {
	p := New(testKey("deal_closed"), day(1, 9))
	target := 10.0
	_, err := p.Apply(4, &target, nil, day(1, 9))
	require.NoError(t, err)
	assert.Equal(t, 6.0, p.RemainingToTarget())

	_, err = p.Apply(20, nil, nil, day(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.RemainingToTarget())
}

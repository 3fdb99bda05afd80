package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhub-io/gamification-engine/internal/domain/achievement"
	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

const testWorkspace = shared.WorkspaceID("0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")

var (
	userA = shared.UserID("aaaaaaaa-0000-4000-8000-000000000001")
	userB = shared.UserID("bbbbbbbb-0000-4000-8000-000000000002")
	userC = shared.UserID("cccccccc-0000-4000-8000-000000000003")
)

func earned(dayOfMonth int) time.Time {
	return time.Date(2026, time.March, dayOfMonth, 12, 0, 0, 0, time.UTC)
}

func TestBuildStandingsOrdersByPoints(t *testing.T) {
	totals := []achievement.CompletedTotal{
		{UserID: userA, TotalPoints: 100, TotalAchievements: 2, LastEarnedAt: earned(1)},
		{UserID: userB, TotalPoints: 300, TotalAchievements: 3, LastEarnedAt: earned(2)},
		{UserID: userC, TotalPoints: 200, TotalAchievements: 4, LastEarnedAt: earned(3)},
	}

	s := BuildStandings(testWorkspace, totals, earned(5))

	require.Len(t, s.Entries, 3)
	assert.Equal(t, userB, s.Entries[0].UserID)
	assert.Equal(t, userC, s.Entries[1].UserID)
	assert.Equal(t, userA, s.Entries[2].UserID)

	// Ranks are 1-based positions.
	assert.Equal(t, Rank(1), s.Entries[0].Rank)
	assert.Equal(t, Rank(2), s.Entries[1].Rank)
	assert.Equal(t, Rank(3), s.Entries[2].Rank)
}

func TestTieBrokenByAchievementCount(t *testing.T) {
	// A has 150 points with 3 achievements, B has 150 points with 5:
	// B ranks above A.
	totals := []achievement.CompletedTotal{
		{UserID: userA, TotalPoints: 150, TotalAchievements: 3, LastEarnedAt: earned(1)},
		{UserID: userB, TotalPoints: 150, TotalAchievements: 5, LastEarnedAt: earned(2)},
	}

	s := BuildStandings(testWorkspace, totals, earned(5))

	assert.Equal(t, userB, s.Entries[0].UserID)
	assert.Equal(t, userA, s.Entries[1].UserID)
}

func TestTieBrokenByEarlierLastEarned(t *testing.T) {
	// Identical points and counts: the earlier achiever ranks higher.
	totals := []achievement.CompletedTotal{
		{UserID: userA, TotalPoints: 150, TotalAchievements: 3, LastEarnedAt: earned(10)},
		{UserID: userB, TotalPoints: 150, TotalAchievements: 3, LastEarnedAt: earned(2)},
	}

	s := BuildStandings(testWorkspace, totals, earned(15))

	assert.Equal(t, userB, s.Entries[0].UserID)
	assert.Equal(t, userA, s.Entries[1].UserID)
}

func TestOrderingInvariant(t *testing.T) {
	totals := []achievement.CompletedTotal{
		{UserID: userA, TotalPoints: 100, TotalAchievements: 1, LastEarnedAt: earned(1)},
		{UserID: userB, TotalPoints: 100, TotalAchievements: 4, LastEarnedAt: earned(2)},
		{UserID: userC, TotalPoints: 250, TotalAchievements: 2, LastEarnedAt: earned(3)},
	}

	s := BuildStandings(testWorkspace, totals, earned(5))

	for i := 1; i < len(s.Entries); i++ {
		prev, cur := s.Entries[i-1], s.Entries[i]
		if prev.TotalPoints == cur.TotalPoints {
			assert.GreaterOrEqual(t, prev.TotalAchievements, cur.TotalAchievements)
		} else {
			assert.Greater(t, prev.TotalPoints, cur.TotalPoints)
		}
	}
}

func TestTopLimitsEntries(t *testing.T) {
	totals := []achievement.CompletedTotal{
		{UserID: userA, TotalPoints: 100},
		{UserID: userB, TotalPoints: 200},
		{UserID: userC, TotalPoints: 300},
	}
	s := BuildStandings(testWorkspace, totals, earned(5))

	assert.Len(t, s.Top(2), 2)
	assert.Len(t, s.Top(0), 3)
	assert.Len(t, s.Top(10), 3)
}

func TestFindUser(t *testing.T) {
	totals := []achievement.CompletedTotal{
		{UserID: userA, TotalPoints: 100},
		{UserID: userB, TotalPoints: 200},
	}
	s := BuildStandings(testWorkspace, totals, earned(5))

	entry, ok := s.FindUser(userA)
	require.True(t, ok)
	assert.Equal(t, Rank(2), entry.Rank)

	_, ok = s.FindUser(userC)
	assert.False(t, ok)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeklyTopWithoutRedis(t *testing.T) {
	db := testutil.OpenTestDB(t)
	goals := NewGoalService(db, GoalTargets{})
	svc := NewLeaderboardService(db, nil)

	now := time.Now()
	weekStart := WeekBounds(now).Start
	require.NoError(t, goals.IncrementPeriodTracking("user-a", models.GoalTypeWeekly, weekStart, 120))
	require.NoError(t, goals.IncrementPeriodTracking("user-b", models.GoalTypeWeekly, weekStart, 300))
	require.NoError(t, goals.IncrementPeriodTracking("user-c", models.GoalTypeWeekly, weekStart, 50))
	// Monthly sums must never leak into the weekly board.
	require.NoError(t, goals.IncrementPeriodTracking("user-d", models.GoalTypeMonthly, MonthBounds(now).Start, 999))

	entries, err := svc.WeeklyTop(context.Background(), now, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "user-b", entries[0].ExternalUserID)
	assert.Equal(t, int64(300), entries[0].XP)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "user-a", entries[1].ExternalUserID)
	assert.Equal(t, "user-c", entries[2].ExternalUserID)
}

func TestWeeklyTopLimit(t *testing.T) {
	db := testutil.OpenTestDB(t)
	goals := NewGoalService(db, GoalTargets{})
	svc := NewLeaderboardService(db, nil)

	now := time.Now()
	weekStart := WeekBounds(now).Start
	require.NoError(t, goals.IncrementPeriodTracking("user-a", models.GoalTypeWeekly, weekStart, 10))
	require.NoError(t, goals.IncrementPeriodTracking("user-b", models.GoalTypeWeekly, weekStart, 20))

	entries, err := svc.WeeklyTop(context.Background(), now, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-b", entries[0].ExternalUserID)
}

func TestWeeklyRankWithoutRedis(t *testing.T) {
	db := testutil.OpenTestDB(t)
	goals := NewGoalService(db, GoalTargets{})
	svc := NewLeaderboardService(db, nil)

	now := time.Now()
	weekStart := WeekBounds(now).Start
	require.NoError(t, goals.IncrementPeriodTracking("user-a", models.GoalTypeWeekly, weekStart, 120))
	require.NoError(t, goals.IncrementPeriodTracking("user-b", models.GoalTypeWeekly, weekStart, 300))

	rank, xp, err := svc.WeeklyRank(context.Background(), now, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
	assert.Equal(t, int64(120), xp)

	rank, xp, err = svc.WeeklyRank(context.Background(), now, "user-b")
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
	assert.Equal(t, int64(300), xp)

	// A user with no tracked XP this week is unranked.
	rank, xp, err = svc.WeeklyRank(context.Background(), now, "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
	assert.Equal(t, int64(0), xp)
}

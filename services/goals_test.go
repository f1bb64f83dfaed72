package services

import (
	"testing"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateGoalFreezesTarget(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewGoalService(db, GoalTargets{})

	week := WeekBounds(time.Now())

	goal, err := svc.GetOrCreateGoal("user-1", models.GoalTypeWeekly, week, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), goal.TargetXP)
	assert.True(t, week.Start.Equal(goal.PeriodStart))
	assert.False(t, goal.IsCompleted)

	// A changed default must not move an existing goal's target.
	again, err := svc.GetOrCreateGoal("user-1", models.GoalTypeWeekly, week, 500)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, again.ID)
	assert.Equal(t, int64(300), again.TargetXP)
}

func TestUpdateGoalProgressClaimsCompletionOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewGoalService(db, GoalTargets{})

	week := WeekBounds(time.Now())
	goal, err := svc.GetOrCreateGoal("user-1", models.GoalTypeWeekly, week, 100)
	require.NoError(t, err)

	updated, transitioned, err := svc.UpdateGoalProgress(goal, 60)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.False(t, updated.IsCompleted)
	assert.Equal(t, int64(60), updated.CurrentXP)

	// Crossing the target claims the transition exactly once.
	updated, transitioned, err = svc.UpdateGoalProgress(goal, 120)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.True(t, updated.IsCompleted)

	updated, transitioned, err = svc.UpdateGoalProgress(goal, 150)
	require.NoError(t, err)
	assert.False(t, transitioned, "completion must only be observed once")
	assert.True(t, updated.IsCompleted)
}

func TestCompletionNeverReverts(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewGoalService(db, GoalTargets{})

	week := WeekBounds(time.Now())
	goal, err := svc.GetOrCreateGoal("user-1", models.GoalTypeWeekly, week, 100)
	require.NoError(t, err)

	_, transitioned, err := svc.UpdateGoalProgress(goal, 100)
	require.NoError(t, err)
	require.True(t, transitioned)

	// A lower recomputed total still leaves the goal completed.
	updated, transitioned, err := svc.UpdateGoalProgress(goal, 40)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.True(t, updated.IsCompleted)
	assert.Equal(t, int64(40), updated.CurrentXP)
}

func TestIncrementPeriodTracking(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewGoalService(db, GoalTargets{})

	weekStart := WeekBounds(time.Now()).Start

	require.NoError(t, svc.IncrementPeriodTracking("user-1", models.GoalTypeWeekly, weekStart, 30))
	require.NoError(t, svc.IncrementPeriodTracking("user-1", models.GoalTypeWeekly, weekStart, 25))

	total, err := svc.PeriodTotal("user-1", models.GoalTypeWeekly, weekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(55), total)

	// Other users and periods stay independent.
	total, err = svc.PeriodTotal("user-2", models.GoalTypeWeekly, weekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	total, err = svc.PeriodTotal("user-1", models.GoalTypeMonthly, weekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestDailyXPSumsOnlyToday(t *testing.T) {
	db := testutil.OpenTestDB(t)
	svc := NewGoalService(db, GoalTargets{})

	now := time.Now().UTC()
	require.NoError(t, db.Create(&models.XpTransaction{
		ExternalUserID: "user-1", XPAmount: 10, SourceType: "exercise_mcq",
	}).Error)
	require.NoError(t, db.Create(&models.XpTransaction{
		ExternalUserID: "user-1", XPAmount: 15, SourceType: "material_read",
	}).Error)
	// Yesterday's row must not count.
	old := models.XpTransaction{ExternalUserID: "user-1", XPAmount: 99, SourceType: "lesson_complete"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&models.XpTransaction{}).
		Where("id = ?", old.ID).
		Update("created_at", now.AddDate(0, 0, -1)).Error)

	total, err := svc.DailyXP("user-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
}

func TestDailyTargetFor(t *testing.T) {
	svc := NewGoalService(nil, GoalTargets{Daily: 50, Weekly: 300, Monthly: 1200})

	assert.Equal(t, int64(50), svc.DailyTargetFor(nil))
	assert.Equal(t, int64(50), svc.DailyTargetFor(&models.UserProgress{}))
	assert.Equal(t, int64(80), svc.DailyTargetFor(&models.UserProgress{DailyXPTarget: 80}))
}

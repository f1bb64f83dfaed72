package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietTargets keeps goal bonuses out of the way for tests that only care
// about the core award pipeline.
var quietTargets = GoalTargets{Daily: 100000, Weekly: 100000, Monthly: 100000}

func newAwardService(t *testing.T, targets GoalTargets) *AwardService {
	t.Helper()
	db := testutil.OpenTestDB(t)
	require.NoError(t, NewRewardConfigService(db).SeedDefaults())
	goals := NewGoalService(db, targets)
	rewards := NewRewardService(db)
	return NewAwardService(db, DefaultLevelCurve, goals, rewards)
}

func strptr(s string) *string { return &s }

func TestAwardXPFreshUser(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	result, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1",
		ActionType:     "exercise_mcq",
		SourceID:       strptr("ex-1"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.XPGained)
	assert.Equal(t, int64(0), result.GoldGained)
	assert.Equal(t, int64(10), result.TotalXP)
	assert.Equal(t, 1, result.CurrentLevel)
	assert.Equal(t, int64(10), result.XPInCurrentLevel)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.Streak)
	assert.Equal(t, 1, result.LongestStreak)

	// First XP earns the FIRST_STEPS badge.
	var badges int64
	svc.DB.Model(&models.UserBadge{}).Where("external_user_id = ?", "user-1").Count(&badges)
	assert.Equal(t, int64(1), badges)
}

func TestAwardXPLevelUp(t *testing.T) {
	svc := newAwardService(t, quietTargets)
	ninetyFive := int64(95)

	first, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1",
		ExplicitXP:     &ninetyFive,
		Description:    "migration credit",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentLevel)
	assert.False(t, first.LeveledUp)
	assert.Equal(t, int64(9), first.GoldGained, "explicit grants convert gold at 10:1")

	second, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1",
		ActionType:     "exercise_mcq",
		SourceID:       strptr("ex-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(105), second.TotalXP)
	assert.Equal(t, 2, second.CurrentLevel)
	assert.Equal(t, int64(5), second.XPInCurrentLevel)
	assert.True(t, second.LeveledUp)

	found := false
	for _, a := range second.Achievements {
		if a.Type == "level_up" {
			found = true
			assert.Equal(t, 2, a.Level)
		}
	}
	assert.True(t, found, "expected a level_up achievement")
}

func TestAwardXPSameDayKeepsStreak(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	_, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "exercise_mcq", SourceID: strptr("ex-1"),
	})
	require.NoError(t, err)

	result, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "exercise_mcq", SourceID: strptr("ex-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak)
	assert.Equal(t, 1, result.LongestStreak)
}

func TestAwardXPStreakContinuesFromYesterday(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	yesterday := DateOnly(time.Now()).AddDate(0, 0, -1)
	require.NoError(t, svc.DB.Create(&models.UserProgress{
		ExternalUserID:   "user-1",
		Level:            1,
		DailyStreak:      2,
		LongestStreak:    2,
		LastActivityDate: &yesterday,
	}).Error)

	result, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "exercise_mcq", SourceID: strptr("ex-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Streak)
	assert.Equal(t, 3, result.LongestStreak)

	// Day 3 is a milestone and must surface on the call that reaches it.
	found := false
	for _, a := range result.Achievements {
		if a.Type == "streak_3_days" {
			found = true
			assert.Equal(t, 3, a.Days)
		}
	}
	assert.True(t, found, "expected a streak_3_days achievement")
}

func TestAwardXPStreakResetsAfterGap(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	lastWeek := DateOnly(time.Now()).AddDate(0, 0, -5)
	require.NoError(t, svc.DB.Create(&models.UserProgress{
		ExternalUserID:   "user-1",
		Level:            1,
		DailyStreak:      9,
		LongestStreak:    9,
		LastActivityDate: &lastWeek,
	}).Error)

	result, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "exercise_mcq", SourceID: strptr("ex-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak)
	assert.Equal(t, 9, result.LongestStreak, "longest streak never shrinks")
}

func TestAwardXPDuplicateSource(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	req := AwardRequest{
		ExternalUserID: "user-1",
		ActionType:     "lesson_complete",
		SourceID:       strptr("lesson-42"),
	}
	first, err := svc.AwardXP(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(50), first.TotalXP)
	assert.Equal(t, int64(5), first.TotalGold)

	// The retry rolls back entirely: no partial credit.
	_, err = svc.AwardXP(context.Background(), req)
	assert.ErrorIs(t, err, ErrDuplicateSource)

	var prog models.UserProgress
	require.NoError(t, svc.DB.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(50), prog.TotalXP)
	assert.Equal(t, int64(5), prog.TotalGold)

	var count int64
	svc.DB.Model(&models.XpTransaction{}).Where("external_user_id = ?", "user-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAwardXPNilSourceIDNeverCollides(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	for i := 0; i < 3; i++ {
		_, err := svc.AwardXP(context.Background(), AwardRequest{
			ExternalUserID: "user-1", ActionType: "exercise_mcq",
		})
		require.NoError(t, err)
	}

	var prog models.UserProgress
	require.NoError(t, svc.DB.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(30), prog.TotalXP)
}

func TestAwardXPUnknownAction(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	_, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "no_such_action",
	})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestAwardXPInactiveAction(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	require.NoError(t, svc.DB.Create(&models.XpRewardConfig{
		ActionType: "retired_action", Title: "Retired", XPAmount: 10,
		IsActive: false, Status: models.ConfigStatusPublished,
	}).Error)
	_, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "retired_action",
	})
	assert.ErrorIs(t, err, ErrInactiveAction)

	require.NoError(t, svc.DB.Create(&models.XpRewardConfig{
		ActionType: "draft_action", Title: "Draft", XPAmount: 10,
		IsActive: true, Status: models.ConfigStatusDraft,
	}).Error)
	_, err = svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "draft_action",
	})
	assert.ErrorIs(t, err, ErrInactiveAction)
}

func TestAwardXPMissingUser(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	_, err := svc.AwardXP(context.Background(), AwardRequest{ActionType: "exercise_mcq"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAwardXPDailyGoalBonus(t *testing.T) {
	svc := newAwardService(t, GoalTargets{Daily: 50, Weekly: 100000, Monthly: 100000})

	result, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1",
		ActionType:     "lesson_complete", // 50 XP — hits the daily target
		SourceID:       strptr("lesson-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), result.GoldGained, "5 from the lesson + 10 daily bonus")
	assert.Equal(t, int64(15), result.TotalGold)

	found := false
	for _, a := range result.Achievements {
		if a.Type == models.SourceDailyGoalAchieved {
			found = true
		}
	}
	assert.True(t, found, "expected a daily goal achievement")

	// More XP today must not re-grant the bonus.
	second, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ActionType: "exercise_mcq", SourceID: strptr("ex-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.GoldGained)

	var bonuses int64
	svc.DB.Model(&models.XpTransaction{}).
		Where("external_user_id = ? AND source_type = ?", "user-1", models.SourceDailyGoalAchieved).
		Count(&bonuses)
	assert.Equal(t, int64(1), bonuses)
}

func TestAwardXPWeeklyGoalBonus(t *testing.T) {
	svc := newAwardService(t, GoalTargets{Daily: 100000, Weekly: 100, Monthly: 100000})
	ninetyFive := int64(95)
	ten := int64(10)

	first, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &ninetyFive,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), first.GoldGained, "no weekly bonus at 95/100")

	second, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &ten,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(51), second.GoldGained, "1 from the grant + 50 weekly bonus")

	// Further XP in the same week grants nothing extra.
	third, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &ten,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), third.GoldGained)

	var bonuses int64
	svc.DB.Model(&models.XpTransaction{}).
		Where("external_user_id = ? AND source_type = ?", "user-1", models.SourceWeeklyGoalAchieved).
		Count(&bonuses)
	assert.Equal(t, int64(1), bonuses)
}

func TestAwardXPRejectsNonPositiveExplicitXP(t *testing.T) {
	svc := newAwardService(t, quietTargets)
	hundred := int64(100)

	_, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &hundred,
	})
	require.NoError(t, err)

	// Totals only ever grow: a negative grant must be rejected outright,
	// never shrink total_xp or write a negative ledger row.
	negative := int64(-70)
	_, err = svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &negative,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	zero := int64(0)
	_, err = svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &zero,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	var prog models.UserProgress
	require.NoError(t, svc.DB.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(100), prog.TotalXP)
	assert.Equal(t, int64(10), prog.TotalGold)

	var count int64
	svc.DB.Model(&models.XpTransaction{}).Where("external_user_id = ?", "user-1").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAwardXPSequentialAccumulation(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	for i := 0; i < 100; i++ {
		_, err := svc.AwardXP(context.Background(), AwardRequest{
			ExternalUserID: "user-1",
			ActionType:     "exercise_mcq",
			SourceID:       strptr(fmt.Sprintf("ex-%d", i)),
		})
		require.NoError(t, err)
	}

	var prog models.UserProgress
	require.NoError(t, svc.DB.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(1000), prog.TotalXP, "every award counted exactly once")
	assert.Equal(t, 5, prog.Level)

	var count int64
	svc.DB.Model(&models.XpTransaction{}).
		Where("external_user_id = ? AND source_type = ?", "user-1", "exercise_mcq").
		Count(&count)
	assert.Equal(t, int64(100), count)
}

func TestAwardXPConcurrentAccumulation(t *testing.T) {
	svc := newAwardService(t, quietTargets)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AwardXP(context.Background(), AwardRequest{
				ExternalUserID: "user-1",
				ActionType:     "exercise_mcq",
				SourceID:       strptr(fmt.Sprintf("ex-%d", i)),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// In-SQL increments: no interleaving may drop an award.
	var prog models.UserProgress
	require.NoError(t, svc.DB.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(1000), prog.TotalXP)

	var count int64
	svc.DB.Model(&models.XpTransaction{}).
		Where("external_user_id = ? AND source_type = ?", "user-1", "exercise_mcq").
		Count(&count)
	assert.Equal(t, int64(100), count)
}

func TestAwardXPConcurrentWeeklyBonusOnce(t *testing.T) {
	svc := newAwardService(t, GoalTargets{Daily: 100000, Weekly: 100, Monthly: 100000})
	ninetyFive := int64(95)

	_, err := svc.AwardXP(context.Background(), AwardRequest{
		ExternalUserID: "user-1", ExplicitXP: &ninetyFive,
	})
	require.NoError(t, err)

	// Two calls race across the weekly threshold; the completion claim and
	// the reward_given flag let exactly one of them commit the bonus.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ten := int64(10)
			_, err := svc.AwardXP(context.Background(), AwardRequest{
				ExternalUserID: "user-1", ExplicitXP: &ten,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var bonuses int64
	svc.DB.Model(&models.XpTransaction{}).
		Where("external_user_id = ? AND source_type = ?", "user-1", models.SourceWeeklyGoalAchieved).
		Count(&bonuses)
	assert.Equal(t, int64(1), bonuses)

	var prog models.UserProgress
	require.NoError(t, svc.DB.Where("external_user_id = ?", "user-1").First(&prog).Error)
	assert.Equal(t, int64(115), prog.TotalXP)
	assert.Equal(t, int64(61), prog.TotalGold, "9 + 1 + 1 from grants, 50 bonus once")
}

package services

import (
	"fmt"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GoalTargets holds the service-default XP targets per period. The daily
// target can be overridden per user on their profile; weekly and monthly
// targets are frozen into Goal rows at period start.
type GoalTargets struct {
	Daily   int64
	Weekly  int64
	Monthly int64
}

var DefaultGoalTargets = GoalTargets{Daily: 50, Weekly: 300, Monthly: 1200}

type GoalService struct {
	DB      *gorm.DB
	Targets GoalTargets
}

func NewGoalService(db *gorm.DB, targets GoalTargets) *GoalService {
	if targets == (GoalTargets{}) {
		targets = DefaultGoalTargets
	}
	return &GoalService{DB: db, Targets: targets}
}

// GetOrCreateGoal returns the frozen goal row for (user, type, period),
// creating it with defaultTargetXP if absent. The insert races safely: ON
// CONFLICT DO NOTHING means a concurrent loser simply reads back the
// winner's row, and an existing row's target is never overwritten even if
// defaultTargetXP differs.
func (s *GoalService) GetOrCreateGoal(externalUserID string, goalType models.GoalType, period Period, defaultTargetXP int64) (*models.Goal, error) {
	candidate := models.Goal{
		ExternalUserID: externalUserID,
		GoalType:       goalType,
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		TargetXP:       defaultTargetXP,
	}
	if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}

	var goal models.Goal
	err := s.DB.
		Where("external_user_id = ? AND goal_type = ? AND period_start = ?",
			externalUserID, goalType, period.Start).
		First(&goal).Error
	if err != nil {
		return nil, fmt.Errorf("read goal back: %w", err)
	}
	return &goal, nil
}

// UpdateGoalProgress refreshes current_xp and claims the completion
// transition. The returned bool is true only for the single caller whose
// guarded UPDATE flipped is_completed false→true; completion is one-way and
// never reverts even if currentXP is later recomputed lower.
func (s *GoalService) UpdateGoalProgress(goal *models.Goal, currentXP int64) (*models.Goal, bool, error) {
	if err := s.DB.Model(&models.Goal{}).
		Where("id = ?", goal.ID).
		Update("current_xp", currentXP).Error; err != nil {
		return nil, false, fmt.Errorf("update goal progress: %w", err)
	}

	transitioned := false
	if currentXP >= goal.TargetXP {
		res := s.DB.Model(&models.Goal{}).
			Where("id = ? AND is_completed = ?", goal.ID, false).
			Update("is_completed", true)
		if res.Error != nil {
			return nil, false, fmt.Errorf("complete goal: %w", res.Error)
		}
		transitioned = res.RowsAffected == 1
	}

	var updated models.Goal
	if err := s.DB.First(&updated, "id = ?", goal.ID).Error; err != nil {
		return nil, false, fmt.Errorf("reload goal: %w", err)
	}
	return &updated, transitioned, nil
}

// DailyXP sums today's ledger rows for the user. Daily goals are never
// persisted as rows — a day's target has no meaningful stale state, so
// progress is recomputed fresh and the target is read live.
func (s *GoalService) DailyXP(externalUserID string, today time.Time) (int64, error) {
	day := DayBounds(today)
	var total int64
	err := s.DB.Model(&models.XpTransaction{}).
		Where("external_user_id = ? AND created_at >= ? AND created_at < ?",
			externalUserID, day.Start, day.Start.AddDate(0, 0, 1)).
		Select("COALESCE(SUM(xp_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum daily xp: %w", err)
	}
	return total, nil
}

// DailyTargetFor reads the user's live daily target, falling back to the
// service default when the profile carries none.
func (s *GoalService) DailyTargetFor(prog *models.UserProgress) int64 {
	if prog != nil && prog.DailyXPTarget > 0 {
		return prog.DailyXPTarget
	}
	return s.Targets.Daily
}

// IncrementPeriodTracking upserts xp_total += delta for the materialized
// per-period aggregate. The increment runs inside the UPDATE so concurrent
// awards never lose a delta.
func (s *GoalService) IncrementPeriodTracking(externalUserID string, periodType models.GoalType, periodStart time.Time, delta int64) error {
	row := models.PeriodXpTracking{
		ExternalUserID: externalUserID,
		PeriodType:     periodType,
		PeriodStart:    periodStart,
		XPTotal:        delta,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "external_user_id"}, {Name: "period_type"}, {Name: "period_start"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xp_total": gorm.Expr("xp_total + ?", delta),
		}),
	}).Create(&row).Error
}

// PeriodTotal reads the materialized sum for one period (0 if untracked yet).
func (s *GoalService) PeriodTotal(externalUserID string, periodType models.GoalType, periodStart time.Time) (int64, error) {
	var row models.PeriodXpTracking
	err := s.DB.
		Where("external_user_id = ? AND period_type = ? AND period_start = ?",
			externalUserID, periodType, periodStart).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return row.XPTotal, nil
}

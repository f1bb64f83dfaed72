package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// LookupConfig resolves an action code to its reward config. Returns
// ErrUnknownAction / ErrInactiveAction per the taxonomy.
func (s *RewardService) LookupConfig(actionType string) (*models.XpRewardConfig, error) {
	var cfg models.XpRewardConfig
	if err := s.DB.Where("action_type = ?", actionType).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAction
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !cfg.IsActive || cfg.Status != models.ConfigStatusPublished {
		return nil, ErrInactiveAction
	}
	return &cfg, nil
}

func bonusSourceType(goalType models.GoalType) string {
	switch goalType {
	case models.GoalTypeWeekly:
		return models.SourceWeeklyGoalAchieved
	case models.GoalTypeMonthly:
		return models.SourceMonthlyGoalAchieved
	default:
		return models.SourceDailyGoalAchieved
	}
}

// AwardGoalBonus grants the one-time Gold bonus for a completed goal.
// Called only when the caller observed the completion transition this
// request. Idempotency:
//
//   - weekly/monthly: the reward_given flag is claimed with a guarded
//     UPDATE; losers of a race see zero rows affected and skip.
//   - daily: no Goal row exists, so the guard is the ledger's unique index —
//     inserting a second daily_goal_achieved row for the same date is a
//     silent no-op.
//
// Missing or inactive bonus config is logged and skipped; it never fails the
// enclosing award. Returns the Gold granted (0 when skipped).
func (s *RewardService) AwardGoalBonus(externalUserID string, goalType models.GoalType, goal *models.Goal, today time.Time) (int64, error) {
	sourceType := bonusSourceType(goalType)

	cfg, err := s.LookupConfig(sourceType)
	if err != nil {
		if errors.Is(err, ErrUnknownAction) || errors.Is(err, ErrInactiveAction) {
			log.Printf("⚠️ [REWARD] no active bonus config for %s — skipping grant", sourceType)
			return 0, nil
		}
		return 0, err
	}

	var sourceID string
	if goal != nil {
		// Weekly/monthly: claim the once-only flag first.
		res := s.DB.Model(&models.Goal{}).
			Where("id = ? AND reward_given = ?", goal.ID, false).
			Update("reward_given", true)
		if res.Error != nil {
			return 0, fmt.Errorf("claim reward flag: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return 0, nil // already rewarded
		}
		sourceID = goal.ID
	} else {
		sourceID = DateOnly(today).Format(time.DateOnly)
	}

	tx := models.XpTransaction{
		ExternalUserID: externalUserID,
		XPAmount:       0,
		GoldAmount:     cfg.GoldAmount,
		SourceType:     sourceType,
		SourceID:       &sourceID,
		Description:    cfg.Title,
	}
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&tx)
	if res.Error != nil {
		return 0, fmt.Errorf("append bonus transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, nil // bonus already committed by another request
	}

	if err := s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ?", externalUserID).
		UpdateColumn("total_gold", gorm.Expr("total_gold + ?", cfg.GoldAmount)).Error; err != nil {
		return 0, fmt.Errorf("credit gold: %w", err)
	}

	log.Printf("💰 Gold bonus: %s → +%d (%s)", externalUserID, cfg.GoldAmount, sourceType)
	return cfg.GoldAmount, nil
}

// AutoAwardBadges checks all badge triggers against the profile and awards
// any newly earned ones. The unique (user, badge_code) index makes the loop
// idempotent; only freshly inserted badges are returned.
func (s *RewardService) AutoAwardBadges(prog *models.UserProgress) ([]models.BadgeType, error) {
	var awarded []models.BadgeType
	for _, trigger := range models.BadgeTriggers {
		if !meetsTrigger(prog, trigger) {
			continue
		}
		userBadge := models.UserBadge{
			ExternalUserID: prog.ExternalUserID,
			BadgeCode:      trigger.Code,
		}
		res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&userBadge)
		if res.Error != nil {
			return awarded, res.Error
		}
		if res.RowsAffected == 1 {
			awarded = append(awarded, trigger.BadgeType)
			log.Printf("🎖️ Badge awarded: %s → %s", trigger.Name, prog.ExternalUserID)
		}
	}
	return awarded, nil
}

func meetsTrigger(prog *models.UserProgress, t models.BadgeTrigger) bool {
	if t.MinLevel > 0 && prog.Level < t.MinLevel {
		return false
	}
	if t.MinStreak > 0 && prog.DailyStreak < t.MinStreak {
		return false
	}
	if t.MinXP > 0 && prog.TotalXP < t.MinXP {
		return false
	}
	return true
}

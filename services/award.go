package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AwardService is the single entry point for "award XP for action X".
// Steps 1–6 of the pipeline (resolve, profile upsert, totals, streak,
// ledger append) are must-succeed and run in one transaction; goal
// tracking, bonuses and badges are best-effort enrichment that can never
// claw back XP already granted.
type AwardService struct {
	DB      *gorm.DB
	Curve   LevelCurve
	Goals   *GoalService
	Rewards *RewardService

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewAwardService(db *gorm.DB, curve LevelCurve, goals *GoalService, rewards *RewardService) *AwardService {
	if curve.BaseXP <= 0 {
		curve = DefaultLevelCurve
	}
	return &AwardService{
		DB:      db,
		Curve:   curve,
		Goals:   goals,
		Rewards: rewards,
		Now:     time.Now,
	}
}

type AwardRequest struct {
	ExternalUserID string  `json:"-"`
	ActionType     string  `json:"action_type"`
	SourceID       *string `json:"source_id,omitempty"`
	Description    string  `json:"description,omitempty"`
	// ExplicitXP bypasses the config lookup (admin grants); Gold follows the
	// 10:1 conversion rule.
	ExplicitXP *int64 `json:"xp_amount,omitempty"`
}

type Achievement struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Level    int    `json:"level,omitempty"`
	Days     int    `json:"days,omitempty"`
	GoalType string `json:"goal_type,omitempty"`
}

type AwardResult struct {
	XPGained         int64         `json:"xp_gained"`
	GoldGained       int64         `json:"gold_gained"`
	TotalXP          int64         `json:"total_xp"`
	TotalGold        int64         `json:"total_gold"`
	CurrentLevel     int           `json:"current_level"`
	XPInCurrentLevel int64         `json:"xp_in_current_level"`
	LeveledUp        bool          `json:"leveled_up"`
	Streak           int           `json:"streak"`
	LongestStreak    int           `json:"longest_streak"`
	Achievements     []Achievement `json:"achievements"`
}

var achievementTitler = cases.Title(language.English)

func achievementTitle(code string) string {
	return achievementTitler.String(strings.ReplaceAll(code, "_", " "))
}

// AwardXP processes one award end-to-end and returns the updated summary.
func (s *AwardService) AwardXP(ctx context.Context, req AwardRequest) (*AwardResult, error) {
	if req.ExternalUserID == "" {
		return nil, ErrUnauthorized
	}

	db := s.DB.WithContext(ctx)
	today := DateOnly(s.Now())

	// Step 1 — resolve XP/Gold for the action.
	xpAmount, goldAmount := int64(0), int64(0)
	sourceType := req.ActionType
	description := req.Description
	if req.ExplicitXP != nil {
		if *req.ExplicitXP <= 0 {
			return nil, ErrInvalidAmount
		}
		xpAmount = *req.ExplicitXP
		goldAmount = xpAmount / 10
		if sourceType == "" {
			sourceType = models.SourceManualGrant
		}
	} else {
		cfg, err := s.Rewards.LookupConfig(req.ActionType)
		if err != nil {
			return nil, err
		}
		xpAmount = cfg.XPAmount
		goldAmount = cfg.GoldAmount
		if description == "" {
			description = cfg.Title
		}
	}

	result := &AwardResult{XPGained: xpAmount, GoldGained: goldAmount}

	// Steps 2–6 — must succeed atomically: no partial credit, ever.
	err := db.Transaction(func(tx *gorm.DB) error {
		prog, err := ensureProfile(tx, req.ExternalUserID)
		if err != nil {
			return err
		}

		// Step 3 — new totals and level, computed before persisting.
		newTotalXP := prog.TotalXP + xpAmount
		newLevel, _ := s.Curve.LevelFromXP(newTotalXP)
		leveledUp := newLevel > prog.Level

		// Step 4 — streak step. Milestones only fire on the call that
		// actually advances the streak, not on same-day re-entries.
		streak := NextStreak(today, prog.LastActivityDate, prog.DailyStreak)
		advanced := prog.LastActivityDate == nil || !SameDay(*prog.LastActivityDate, today)

		// Step 5 — persist. Increments run inside the UPDATE so two
		// concurrent awards can never lose one; level only moves up.
		updates := map[string]interface{}{
			"total_xp":   gorm.Expr("total_xp + ?", xpAmount),
			"total_gold": gorm.Expr("total_gold + ?", goldAmount),
			"level":      gorm.Expr("CASE WHEN level < ? THEN ? ELSE level END", newLevel, newLevel),
		}
		if leveledUp {
			updates["last_level_up_at"] = s.Now()
		}
		if err := tx.Model(&models.UserProgress{}).
			Where("external_user_id = ?", req.ExternalUserID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update totals: %w", err)
		}

		// The date guard makes same-day replays no-ops, so a concurrent
		// duplicate can neither double-advance nor reset the streak.
		if err := tx.Model(&models.UserProgress{}).
			Where("external_user_id = ? AND (last_activity_date IS NULL OR last_activity_date < ?)",
				req.ExternalUserID, today).
			Updates(map[string]interface{}{
				"daily_streak":       streak,
				"longest_streak":     gorm.Expr("CASE WHEN longest_streak < ? THEN ? ELSE longest_streak END", streak, streak),
				"last_activity_date": today,
			}).Error; err != nil {
			return fmt.Errorf("update streak: %w", err)
		}

		// Step 6 — append to the ledger, the durability boundary. A unique
		// violation means this source was already credited: abort the whole
		// call, rolling back the profile update.
		ledgerRow := models.XpTransaction{
			ExternalUserID: req.ExternalUserID,
			XPAmount:       xpAmount,
			GoldAmount:     goldAmount,
			SourceType:     sourceType,
			SourceID:       req.SourceID,
			Description:    description,
		}
		if err := tx.Create(&ledgerRow).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateSource
			}
			return fmt.Errorf("append transaction: %w", err)
		}

		var fresh models.UserProgress
		if err := tx.Where("external_user_id = ?", req.ExternalUserID).First(&fresh).Error; err != nil {
			return fmt.Errorf("reload profile: %w", err)
		}

		result.TotalXP = fresh.TotalXP
		result.TotalGold = fresh.TotalGold
		result.CurrentLevel, result.XPInCurrentLevel = s.Curve.LevelFromXP(fresh.TotalXP)
		result.LeveledUp = leveledUp
		result.Streak = fresh.DailyStreak
		result.LongestStreak = fresh.LongestStreak

		if leveledUp {
			result.Achievements = append(result.Achievements, Achievement{
				Type:  "level_up",
				Title: achievementTitle("level_up"),
				Level: result.CurrentLevel,
			})
		}
		if advanced {
			for _, n := range StreakMilestones {
				if fresh.DailyStreak == n {
					code := fmt.Sprintf("streak_%d_days", n)
					result.Achievements = append(result.Achievements, Achievement{
						Type:  code,
						Title: achievementTitle(code),
						Days:  n,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateSource),
			errors.Is(err, ErrUnknownAction),
			errors.Is(err, ErrInactiveAction):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	// Steps 7–10 — best effort, each failure logged and swallowed on its
	// own so one broken tracker cannot hide another's success.
	s.trackPeriods(req.ExternalUserID, xpAmount, today)
	s.evaluateDailyGoal(req.ExternalUserID, today, result)
	s.evaluatePeriodGoal(req.ExternalUserID, models.GoalTypeWeekly, WeekBounds(today), s.Goals.Targets.Weekly, today, result)
	s.evaluatePeriodGoal(req.ExternalUserID, models.GoalTypeMonthly, MonthBounds(today), s.Goals.Targets.Monthly, today, result)
	s.awardBadges(req.ExternalUserID, result)

	log.Printf("🎮 XP Awarded: %s → +%d XP, total=%d, lvl=%d, streak=%d (%s)",
		req.ExternalUserID, xpAmount, result.TotalXP, result.CurrentLevel, result.Streak, sourceType)

	return result, nil
}

// ensureProfile lazily creates the progress row with defaults. The unique
// index on external_user_id plus DO NOTHING makes concurrent first awards
// converge on one row.
func ensureProfile(tx *gorm.DB, externalUserID string) (*models.UserProgress, error) {
	candidate := models.UserProgress{
		ExternalUserID: externalUserID,
		Level:          1,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	var prog models.UserProgress
	if err := tx.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &prog, nil
}

// Step 7 — materialized weekly/monthly sums.
func (s *AwardService) trackPeriods(externalUserID string, xpAmount int64, today time.Time) {
	if xpAmount == 0 {
		return
	}
	if err := s.Goals.IncrementPeriodTracking(externalUserID, models.GoalTypeWeekly, WeekBounds(today).Start, xpAmount); err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] weekly tracking failed for %s: %v", externalUserID, err)
	}
	if err := s.Goals.IncrementPeriodTracking(externalUserID, models.GoalTypeMonthly, MonthBounds(today).Start, xpAmount); err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] monthly tracking failed for %s: %v", externalUserID, err)
	}
}

// Step 8 — daily goal, recomputed fresh from the ledger, live target.
func (s *AwardService) evaluateDailyGoal(externalUserID string, today time.Time, result *AwardResult) {
	dailyXP, err := s.Goals.DailyXP(externalUserID, today)
	if err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] daily sum failed for %s: %v", externalUserID, err)
		return
	}

	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] profile read failed for %s: %v", externalUserID, err)
		return
	}
	if dailyXP < s.Goals.DailyTargetFor(&prog) {
		return
	}

	gold, err := s.Rewards.AwardGoalBonus(externalUserID, models.GoalTypeDaily, nil, today)
	if err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] daily bonus failed for %s: %v", externalUserID, err)
		return
	}
	if gold > 0 {
		result.GoldGained += gold
		result.TotalGold += gold
		result.Achievements = append(result.Achievements, Achievement{
			Type:     models.SourceDailyGoalAchieved,
			Title:    achievementTitle(models.SourceDailyGoalAchieved),
			GoalType: string(models.GoalTypeDaily),
		})
	}
}

// Step 9 — weekly/monthly goals with frozen targets.
func (s *AwardService) evaluatePeriodGoal(externalUserID string, goalType models.GoalType, period Period, defaultTarget int64, today time.Time, result *AwardResult) {
	goal, err := s.Goals.GetOrCreateGoal(externalUserID, goalType, period, defaultTarget)
	if err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] %s goal fetch failed for %s: %v", goalType, externalUserID, err)
		return
	}

	currentXP, err := s.Goals.PeriodTotal(externalUserID, goalType, period.Start)
	if err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] %s total failed for %s: %v", goalType, externalUserID, err)
		return
	}

	updated, transitioned, err := s.Goals.UpdateGoalProgress(goal, currentXP)
	if err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] %s progress update failed for %s: %v", goalType, externalUserID, err)
		return
	}
	if !transitioned {
		return
	}

	gold, err := s.Rewards.AwardGoalBonus(externalUserID, goalType, updated, today)
	if err != nil {
		log.Printf("⚠️ [GOAL_TRACKING] %s bonus failed for %s: %v", goalType, externalUserID, err)
		return
	}
	result.GoldGained += gold
	result.TotalGold += gold
	result.Achievements = append(result.Achievements, Achievement{
		Type:     bonusSourceType(goalType),
		Title:    achievementTitle(bonusSourceType(goalType)),
		GoalType: string(goalType),
	})
}

// Step 10 — badges (fire-and-forget enrichment).
func (s *AwardService) awardBadges(externalUserID string, result *AwardResult) {
	var prog models.UserProgress
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		log.Printf("⚠️ [BADGES] profile read failed for %s: %v", externalUserID, err)
		return
	}
	badges, err := s.Rewards.AutoAwardBadges(&prog)
	if err != nil {
		log.Printf("⚠️ [BADGES] auto-award failed for %s: %v", externalUserID, err)
	}
	for _, b := range badges {
		result.Achievements = append(result.Achievements, Achievement{
			Type:  "badge_earned",
			Title: b.Name,
		})
	}
}

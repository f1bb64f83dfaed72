package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeType: static config (seeded from BadgeTriggers below)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "STREAK_7", "LEVEL_10"
	Name        string `gorm:"not null"`
	Description string
	Rarity      string    `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance. The composite unique index keeps the
// best-effort auto-award loop idempotent under concurrent requests.
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_user_badge"`
	BadgeCode      string    `gorm:"not null;uniqueIndex:idx_user_badge"`
	AwardedAt      time.Time `gorm:"autoCreateTime"`
}

func (b *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BadgeTrigger ties a badge to a profile threshold. All non-zero fields must
// be met.
type BadgeTrigger struct {
	BadgeType
	MinLevel  int
	MinStreak int
	MinXP     int64
}

// BadgeTriggers are evaluated after every successful award (best-effort).
var BadgeTriggers = []BadgeTrigger{
	{BadgeType: BadgeType{Code: "FIRST_STEPS", Name: "First Steps", Description: "Earned your first XP", Rarity: "common"}, MinXP: 1},
	{BadgeType: BadgeType{Code: "STREAK_3", Name: "Warming Up", Description: "3-day study streak", Rarity: "common"}, MinStreak: 3},
	{BadgeType: BadgeType{Code: "STREAK_7", Name: "One Full Week", Description: "7-day study streak", Rarity: "rare"}, MinStreak: 7},
	{BadgeType: BadgeType{Code: "STREAK_30", Name: "Habit Formed", Description: "30-day study streak", Rarity: "epic"}, MinStreak: 30},
	{BadgeType: BadgeType{Code: "STREAK_100", Name: "Unstoppable", Description: "100-day study streak", Rarity: "legendary"}, MinStreak: 100},
	{BadgeType: BadgeType{Code: "LEVEL_5", Name: "Getting Serious", Description: "Reached level 5", Rarity: "common"}, MinLevel: 5},
	{BadgeType: BadgeType{Code: "LEVEL_10", Name: "Dedicated Learner", Description: "Reached level 10", Rarity: "rare"}, MinLevel: 10},
	{BadgeType: BadgeType{Code: "LEVEL_25", Name: "Polyglot In Training", Description: "Reached level 25", Rarity: "epic"}, MinLevel: 25},
	{BadgeType: BadgeType{Code: "XP_10K", Name: "Ten Thousand Club", Description: "Accumulated 10,000 XP", Rarity: "epic"}, MinXP: 10000},
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProgress tracks gamified progression for each user (denormalized for performance).
// Totals are a cache over the xp_transactions ledger; the nightly reconcile
// worker repairs any drift.
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	TotalXP   int64 `json:"total_xp" gorm:"default:0"`
	TotalGold int64 `json:"total_gold" gorm:"default:0"`
	Level     int   `json:"level" gorm:"default:1"`

	// Streaks (calendar days with at least one qualifying action, UTC)
	DailyStreak   int `json:"daily_streak" gorm:"default:0"`
	LongestStreak int `json:"longest_streak" gorm:"default:0"`

	// Date-only, normalized to UTC midnight. Nil until the first award.
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`

	// Per-user daily XP target; 0 means "use the service default".
	// Read live when evaluating the daily goal — daily targets are never frozen.
	DailyXPTarget int64 `json:"daily_xp_target" gorm:"default:0"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// IDs are generated in-process so the schema works on both Postgres and the
// sqlite test driver.
func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

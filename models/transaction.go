package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Source types written by the award pipeline. Routine actions use the codes
// from xp_reward_configs; these are the reserved bonus codes.
const (
	SourceDailyGoalAchieved   = "daily_goal_achieved"
	SourceWeeklyGoalAchieved  = "weekly_goal_achieved"
	SourceMonthlyGoalAchieved = "monthly_goal_achieved"
	SourceManualGrant         = "manual_grant"
)

// XpTransaction is the append-only system of record for XP and Gold.
// Rows are immutable once written. The composite unique index makes retried
// awards (same source) and duplicate milestone bonuses impossible to commit
// twice: SourceID is NULL when the caller has no stable reference, and NULLs
// never collide.
type XpTransaction struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"index;not null;uniqueIndex:idx_tx_source" json:"external_user_id"`
	XPAmount       int64   `json:"xp_amount"`
	GoldAmount     int64   `json:"gold_amount" gorm:"default:0"`
	SourceType     string  `gorm:"not null;uniqueIndex:idx_tx_source" json:"source_type"`
	SourceID       *string `gorm:"uniqueIndex:idx_tx_source" json:"source_id,omitempty"`
	Description    string  `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (t *XpTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

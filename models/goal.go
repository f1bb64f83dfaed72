package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoalType string

const (
	GoalTypeDaily   GoalType = "daily"
	GoalTypeWeekly  GoalType = "weekly"
	GoalTypeMonthly GoalType = "monthly"
)

// Goal is a frozen weekly/monthly target row. TargetXP and the period bounds
// are fixed at creation and never recomputed, so a mid-period change to the
// user's daily target cannot retroactively move an in-progress goal.
// Daily goals are not persisted — they are recomputed from same-day ledger
// rows on every award.
//
// IsCompleted and RewardGiven are monotonic false→true. Both are flipped via
// guarded UPDATEs (WHERE flag = false) so exactly one request ever observes
// the transition, even under concurrent awards.
type Goal struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_goal_period" json:"external_user_id"`
	GoalType       GoalType  `gorm:"not null;uniqueIndex:idx_goal_period" json:"goal_type"`
	PeriodStart    time.Time `gorm:"not null;uniqueIndex:idx_goal_period" json:"period_start"`
	PeriodEnd      time.Time `gorm:"not null" json:"period_end"`

	TargetXP    int64 `gorm:"not null" json:"target_xp"`
	CurrentXP   int64 `gorm:"default:0" json:"current_xp"`
	IsCompleted bool  `gorm:"default:false" json:"is_completed"`
	RewardGiven bool  `gorm:"default:false" json:"reward_given"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// PeriodXpTracking is a materialized per-period XP sum so weekly/monthly goal
// progress and the leaderboard never rescan the ledger. Kept consistent by
// upserting xp_total += delta in the same pipeline that appends transactions.
type PeriodXpTracking struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_period_tracking" json:"external_user_id"`
	PeriodType     GoalType  `gorm:"not null;uniqueIndex:idx_period_tracking" json:"period_type"`
	PeriodStart    time.Time `gorm:"not null;uniqueIndex:idx_period_tracking;index" json:"period_start"`
	XPTotal        int64     `gorm:"default:0" json:"xp_total"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *PeriodXpTracking) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	gorm "gorm.io/gorm"
)

// ConfigStatus indicates the publishing status of a reward config entry
type ConfigStatus string

const (
	ConfigStatusDraft     ConfigStatus = "draft"
	ConfigStatusPublished ConfigStatus = "published"
	ConfigStatusArchived  ConfigStatus = "archived"
)

// XpRewardConfig maps an action code to the XP/Gold it grants.
// Owned by the content team through the admin CRUD; the award pipeline only
// reads it. An entry is usable when IsActive is true and Status is published.
type XpRewardConfig struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	ActionType  string       `gorm:"uniqueIndex;not null" json:"action_type"` // e.g. "exercise_mcq", "lesson_complete"
	Title       string       `gorm:"not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	XPAmount    int64        `gorm:"not null" json:"xp_amount"`
	GoldAmount  int64        `gorm:"default:0" json:"gold_amount"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`
	Status      ConfigStatus `gorm:"not null;default:'published'" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *XpRewardConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// DefaultRewardConfigs seeds the actions the platform awards out of the box.
// Inserted with ON CONFLICT DO NOTHING at startup so admin edits survive
// restarts.
var DefaultRewardConfigs = []XpRewardConfig{
	{ActionType: "exercise_mcq", Title: "Multiple Choice Exercise", XPAmount: 10, GoldAmount: 0},
	{ActionType: "exercise_gap_fill", Title: "Gap Fill Exercise", XPAmount: 10, GoldAmount: 0},
	{ActionType: "exercise_complete", Title: "Exercise Set Completed", XPAmount: 25, GoldAmount: 0},
	{ActionType: "lesson_complete", Title: "Lesson Completed", XPAmount: 50, GoldAmount: 5},
	{ActionType: "material_read", Title: "Material Read", XPAmount: 15, GoldAmount: 0},
	{ActionType: "word_added", Title: "Word Added To Dictionary", XPAmount: 5, GoldAmount: 0},
	{ActionType: SourceDailyGoalAchieved, Title: "Daily Goal Achieved", XPAmount: 0, GoldAmount: 10},
	{ActionType: SourceWeeklyGoalAchieved, Title: "Weekly Goal Achieved", XPAmount: 0, GoldAmount: 50},
	{ActionType: SourceMonthlyGoalAchieved, Title: "Monthly Goal Achieved", XPAmount: 0, GoldAmount: 200},
}

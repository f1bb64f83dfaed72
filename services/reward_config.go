// services/reward_config.go
package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardConfigService owns the admin CRUD over xp_reward_configs. The award
// pipeline treats the table as read-only external config.
type RewardConfigService struct {
	DB *gorm.DB
}

func NewRewardConfigService(db *gorm.DB) *RewardConfigService {
	return &RewardConfigService{DB: db}
}

// SeedDefaults inserts the built-in action configs, never overwriting admin
// edits.
func (s *RewardConfigService) SeedDefaults() error {
	for _, cfg := range models.DefaultRewardConfigs {
		row := cfg
		row.ID = uuid.NewString()
		row.Status = models.ConfigStatusPublished
		row.IsActive = true
		if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// actionCode derives a stable snake_case action code from a display title.
func actionCode(title string) string {
	return strings.ReplaceAll(slug.Make(title), "-", "_")
}

// --- Admin Handlers ---

// CreateConfig creates a new reward config entry (Admin only)
func (s *RewardConfigService) CreateConfig(c *fiber.Ctx) error {
	var req struct {
		ActionType  string              `json:"action_type"`
		Title       string              `json:"title" validate:"required"`
		Description string              `json:"description"`
		XPAmount    *int64              `json:"xp_amount" validate:"required"`
		GoldAmount  int64               `json:"gold_amount"`
		IsActive    *bool               `json:"is_active"`
		Status      models.ConfigStatus `json:"status"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if req.XPAmount == nil || *req.XPAmount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A non-negative xp_amount is required"})
	}
	if req.GoldAmount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "gold_amount cannot be negative"})
	}

	cfg := &models.XpRewardConfig{
		ID:          uuid.NewString(),
		ActionType:  req.ActionType,
		Title:       req.Title,
		Description: req.Description,
		XPAmount:    *req.XPAmount,
		GoldAmount:  req.GoldAmount,
		IsActive:    true,
		Status:      models.ConfigStatusPublished,
	}
	if cfg.ActionType == "" {
		cfg.ActionType = actionCode(req.Title)
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if req.Status != "" {
		cfg.Status = req.Status
	}

	if err := s.DB.Create(cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Action type already exists"})
		}
		log.Printf("DB Error creating reward config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward config"})
	}

	return c.Status(fiber.StatusCreated).JSON(cfg)
}

// UpdateConfig updates an existing entry (Admin only). ActionType is
// immutable — the ledger references it.
func (s *RewardConfigService) UpdateConfig(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid config ID"})
	}

	var existing models.XpRewardConfig
	if err := s.DB.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward config not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title       *string              `json:"title"`
		Description *string              `json:"description"`
		XPAmount    *int64               `json:"xp_amount"`
		GoldAmount  *int64               `json:"gold_amount"`
		IsActive    *bool                `json:"is_active"`
		Status      *models.ConfigStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.XPAmount != nil {
		if *req.XPAmount < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "xp_amount cannot be negative"})
		}
		existing.XPAmount = *req.XPAmount
	}
	if req.GoldAmount != nil {
		if *req.GoldAmount < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "gold_amount cannot be negative"})
		}
		existing.GoldAmount = *req.GoldAmount
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if req.Status != nil {
		existing.Status = *req.Status
	}

	if err := s.DB.Save(&existing).Error; err != nil {
		log.Printf("DB Error updating reward config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update reward config"})
	}

	return c.JSON(existing)
}

// DeleteConfig soft-deletes an entry (Admin only)
func (s *RewardConfigService) DeleteConfig(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid config ID"})
	}

	var cfg models.XpRewardConfig
	if err := s.DB.First(&cfg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward config not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&cfg).Error; err != nil {
		log.Printf("DB Error deleting reward config: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete reward config"})
	}

	return c.JSON(fiber.Map{"message": "Reward config deleted successfully"})
}

// GetAllConfigs lists entries with optional status/active filters (Admin only)
func (s *RewardConfigService) GetAllConfigs(c *fiber.Ctx) error {
	query := s.DB.Model(&models.XpRewardConfig{})

	switch strings.ToLower(c.Query("status")) {
	case "", "any":
	case "draft", "published", "archived":
		query = query.Where("status = ?", strings.ToLower(c.Query("status")))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
	}

	switch strings.ToLower(c.Query("active")) {
	case "true":
		query = query.Where("is_active = ?", true)
	case "false":
		query = query.Where("is_active = ?", false)
	}

	var configs []models.XpRewardConfig
	if err := query.Order("action_type ASC").Find(&configs).Error; err != nil {
		log.Printf("DB Error fetching reward configs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch reward configs"})
	}

	return c.JSON(configs)
}

// UpdateConfigStatus flips the lifecycle status (e.g. draft -> published)
func (s *RewardConfigService) UpdateConfigStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid config ID"})
	}

	var req struct {
		Status models.ConfigStatus `json:"status" validate:"required,oneof=draft published archived"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	switch req.Status {
	case models.ConfigStatusDraft, models.ConfigStatusPublished, models.ConfigStatusArchived:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status"})
	}

	res := s.DB.Model(&models.XpRewardConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": req.Status, "updated_at": time.Now()})
	if res.Error != nil {
		log.Printf("DB Error updating reward config status: %v", res.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward config not found"})
	}

	return c.JSON(fiber.Map{"message": "Status updated successfully", "status": req.Status})
}

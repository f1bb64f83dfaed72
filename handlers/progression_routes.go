// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/sidneypayan/linguami-sub005/middleware"
	"github.com/sidneypayan/linguami-sub005/models"
	"github.com/sidneypayan/linguami-sub005/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProgressionRoutes(
	app *fiber.App,
	awardService *services.AwardService,
	goalService *services.GoalService,
	rewardService *services.RewardService,
	configService *services.RewardConfigService,
	leaderboardService *services.LeaderboardService,
) {
	// 🔐 Secured routes — require user context forwarded by the Gateway.
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// The single core entry point: award XP for one user action.
	securedGroup.Post("/user/xp/award", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req services.AwardRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		req.ExternalUserID = userID
		if req.ActionType == "" && req.ExplicitXP == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "action_type is required",
			})
		}

		result, err := awardService.AwardXP(c.UserContext(), req)
		if err != nil {
			return awardErrorResponse(c, err)
		}
		return c.JSON(result)
	})

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var prog models.UserProgress
		if err := awardService.DB.Where("external_user_id = ?", userID).First(&prog).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// No award yet — report the lazy-create defaults without persisting.
				prog = models.UserProgress{ExternalUserID: userID, Level: 1}
			} else {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "DB error fetching progress",
					"cause": err.Error(),
				})
			}
		}

		level, xpInLevel := awardService.Curve.LevelFromXP(prog.TotalXP)
		todayXP, err := goalService.DailyXP(userID, awardService.Now())
		if err != nil {
			todayXP = 0
		}

		return c.JSON(fiber.Map{
			"external_user_id":    userID,
			"total_xp":            prog.TotalXP,
			"total_gold":          prog.TotalGold,
			"level":               level,
			"xp_in_current_level": xpInLevel,
			"xp_for_next_level":   awardService.Curve.XPForNextLevel(prog.TotalXP),
			"daily_streak":        prog.DailyStreak,
			"longest_streak":      prog.LongestStreak,
			"last_activity_date":  prog.LastActivityDate,
			"today_xp":            todayXP,
			"daily_xp_target":     goalService.DailyTargetFor(&prog),
		})
	})

	securedGroup.Get("/user/goals", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		now := awardService.Now()

		var prog models.UserProgress
		_ = awardService.DB.Where("external_user_id = ?", userID).First(&prog).Error

		todayXP, err := goalService.DailyXP(userID, now)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute daily progress",
				"cause": err.Error(),
			})
		}
		dailyTarget := goalService.DailyTargetFor(&prog)

		week := services.WeekBounds(now)
		weekly, err := goalService.GetOrCreateGoal(userID, models.GoalTypeWeekly, week, goalService.Targets.Weekly)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load weekly goal",
				"cause": err.Error(),
			})
		}
		month := services.MonthBounds(now)
		monthly, err := goalService.GetOrCreateGoal(userID, models.GoalTypeMonthly, month, goalService.Targets.Monthly)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load monthly goal",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"daily": fiber.Map{
				"target_xp":    dailyTarget,
				"current_xp":   todayXP,
				"is_completed": todayXP >= dailyTarget,
				"period_start": services.DateOnly(now),
				"period_end":   services.DateOnly(now),
			},
			"weekly":  weekly,
			"monthly": monthly,
		})
	})

	securedGroup.Get("/user/progress/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var total int64
		awardService.DB.Model(&models.XpTransaction{}).Where("external_user_id = ?", userID).Count(&total)

		var entries []models.XpTransaction
		if err := awardService.DB.
			Where("external_user_id = ?", userID).
			Order("created_at DESC").
			Limit(size).Offset((page - 1) * size).
			Find(&entries).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"transactions": entries,
			"page":         page,
			"size":         size,
			"total_items":  total,
			"total_pages":  (total + int64(size) - 1) / int64(size),
		})
	})

	securedGroup.Get("/user/progress/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var earned []models.UserBadge
		if err := awardService.DB.
			Where("external_user_id = ?", userID).
			Order("awarded_at ASC").
			Find(&earned).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}

		byCode := make(map[string]models.BadgeType, len(models.BadgeTriggers))
		for _, t := range models.BadgeTriggers {
			byCode[t.Code] = t.BadgeType
		}

		response := make([]fiber.Map, 0, len(earned))
		for _, ub := range earned {
			bt := byCode[ub.BadgeCode]
			response = append(response, fiber.Map{
				"code":        ub.BadgeCode,
				"name":        bt.Name,
				"description": bt.Description,
				"rarity":      bt.Rarity,
				"awarded_at":  ub.AwardedAt,
			})
		}
		return c.JSON(response)
	})

	securedGroup.Get("/leaderboard/weekly", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		entries, err := leaderboardService.WeeklyTop(c.UserContext(), awardService.Now(), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load leaderboard",
				"cause": err.Error(),
			})
		}
		rank, xp, err := leaderboardService.WeeklyRank(c.UserContext(), awardService.Now(), userID)
		if err != nil {
			rank, xp = 0, 0
		}

		return c.JSON(fiber.Map{
			"entries": entries,
			"me":      fiber.Map{"rank": rank, "xp": xp},
		})
	})

	// EventSource cannot set headers — SSE authenticates via query params.
	app.Get("/user/progress/stream", middleware.SSEAuthMiddleware(), rewardService.StreamUserProgressSSE)

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.UserID == "" || req.XP < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id and a positive xp are required",
			})
		}

		result, err := awardService.AwardXP(c.UserContext(), services.AwardRequest{
			ExternalUserID: req.UserID,
			ActionType:     models.SourceManualGrant,
			Description:    req.Reason,
			ExplicitXP:     &req.XP,
		})
		if err != nil {
			return awardErrorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"result":  result,
		})
	})

	adminGroup.Post("/reward-config", configService.CreateConfig)
	adminGroup.Get("/reward-config", configService.GetAllConfigs)
	adminGroup.Put("/reward-config/:id", configService.UpdateConfig)
	adminGroup.Patch("/reward-config/:id/status", configService.UpdateConfigStatus)
	adminGroup.Delete("/reward-config/:id", configService.DeleteConfig)
}

func awardErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user identity"})
	case errors.Is(err, services.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "xp amount must be positive"})
	case errors.Is(err, services.ErrUnknownAction):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown action type"})
	case errors.Is(err, services.ErrInactiveAction):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "action type is inactive"})
	case errors.Is(err, services.ErrDuplicateSource):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "action already credited"})
	case errors.Is(err, services.ErrStoreUnavailable):
		c.Set("Retry-After", strconv.Itoa(int(2*time.Second/time.Second)))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "progression store unavailable, retry",
			"cause": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "XP award failed",
			"cause": err.Error(),
		})
	}
}

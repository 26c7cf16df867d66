package handlers

import (
	"crypto/rand"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"github.com/genimagine/backend/internal/config"
	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/models"
	"github.com/genimagine/backend/internal/services"
)

type AdminHandler struct {
	cfg        *config.Config
	pipeline   *services.Pipeline
	guidelines *services.GuidelinesStore
}

func NewAdminHandler(cfg *config.Config, pipeline *services.Pipeline, guidelines *services.GuidelinesStore) *AdminHandler {
	return &AdminHandler{cfg: cfg, pipeline: pipeline, guidelines: guidelines}
}

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateCode produces a random password code when the admin does not
// supply one.
func generateCode(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	for i, b := range bytes {
		bytes[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(bytes)
}

type createPasswordRequest struct {
	Code            string `json:"code"`
	ImageLimit      int    `json:"image_limit"`
	SuggestionLimit int    `json:"suggestion_limit"`
	BypassWatchdog  bool   `json:"bypass_watchdog"`
	ValidHours      int    `json:"valid_hours"`
}

// CreatePassword issues a new access password, replacing any existing record
// with the same code wholesale.
func (h *AdminHandler) CreatePassword(c *fiber.Ctx) error {
	var req createPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.ImageLimit < 1 {
		req.ImageLimit = 10
	}
	if req.SuggestionLimit < 1 {
		req.SuggestionLimit = 30
	}
	if req.ValidHours < 1 {
		req.ValidHours = 24
	}
	if req.Code == "" {
		req.Code = generateCode(8)
	}

	now := time.Now()
	password := models.AccessPassword{
		Code:            req.Code,
		ImageLimit:      req.ImageLimit,
		SuggestionLimit: req.SuggestionLimit,
		BypassWatchdog:  req.BypassWatchdog,
		ExpiresAt:       now.Add(time.Duration(req.ValidHours) * time.Hour),
		CreatedAt:       now,
	}

	err := database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"image_limit", "suggestion_limit", "bypass_watchdog", "expires_at", "created_at",
		}),
	}).Create(&password).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create password",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    password,
	})
}

// ListPasswords returns all passwords with is_expired derived at read time.
func (h *AdminHandler) ListPasswords(c *fiber.Ctx) error {
	var passwords []models.AccessPassword
	if err := database.DB.Order("created_at DESC").Find(&passwords).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load passwords",
		})
	}

	now := time.Now()
	for i := range passwords {
		passwords[i].IsExpired = passwords[i].Expired(now)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    passwords,
	})
}

// DeletePassword removes a password and cascades its usage records.
func (h *AdminHandler) DeletePassword(c *fiber.Ctx) error {
	code := c.Params("code")

	var password models.AccessPassword
	if err := database.DB.Where("code = ?", code).First(&password).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Password not found",
		})
	}

	if err := database.DB.Delete(&models.AccessPassword{}, "code = ?", code).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete password",
		})
	}
	// Counters are meaningless without their owning password.
	database.DB.Delete(&models.UsageRecord{}, "password_code = ?", code)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password deleted successfully",
	})
}

// ListImages returns all images, paginated.
func (h *AdminHandler) ListImages(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)

	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	var total int64
	database.DB.Model(&models.Image{}).Count(&total)

	var images []models.Image
	if err := database.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&images).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load images",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    images,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// DeleteImage removes any image regardless of owner.
func (h *AdminHandler) DeleteImage(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.pipeline.Delete("", id); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Image deleted successfully",
	})
}

// Stats returns coarse platform usage and cost statistics.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	var stats struct {
		TotalUsers      int64   `json:"total_users"`
		TotalImages     int64   `json:"total_images"`
		RecentUsers     int64   `json:"recent_users"`
		RecentImages    int64   `json:"recent_images"`
		TotalPasswords  int64   `json:"total_passwords"`
		ActivePasswords int64   `json:"active_passwords"`
		ImagesGenerated int64   `json:"images_generated"`
		SuggestionsUsed int64   `json:"suggestions_used"`
		Rejections      int64   `json:"moderation_rejections"`
		EstimatedCost   float64 `json:"estimated_cost_usd"`
	}

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)

	database.DB.Model(&models.User{}).Count(&stats.TotalUsers)
	database.DB.Model(&models.Image{}).Count(&stats.TotalImages)
	database.DB.Model(&models.User{}).Where("created_at >= ?", weekAgo).Count(&stats.RecentUsers)
	database.DB.Model(&models.Image{}).Where("created_at >= ?", weekAgo).Count(&stats.RecentImages)

	database.DB.Model(&models.AccessPassword{}).Count(&stats.TotalPasswords)
	database.DB.Model(&models.AccessPassword{}).Where("expires_at > ?", now).Count(&stats.ActivePasswords)

	database.DB.Model(&models.UsageRecord{}).Select("COALESCE(SUM(images_generated), 0)").Scan(&stats.ImagesGenerated)
	database.DB.Model(&models.UsageRecord{}).Select("COALESCE(SUM(suggestions_used), 0)").Scan(&stats.SuggestionsUsed)
	database.DB.Model(&models.ModerationRejection{}).Count(&stats.Rejections)

	stats.EstimatedCost = float64(stats.ImagesGenerated) * h.cfg.ImageCostUSD

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// GetGuidelines returns the effective moderation guidelines.
func (h *AdminHandler) GetGuidelines(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"guidelines": h.guidelines.Get(),
	})
}

type updateGuidelinesRequest struct {
	Guidelines string `json:"guidelines"`
}

// UpdateGuidelines replaces the moderation guidelines wholesale.
func (h *AdminHandler) UpdateGuidelines(c *fiber.Ctx) error {
	var req updateGuidelinesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.Guidelines == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Guidelines text is required",
		})
	}

	if err := h.guidelines.Set(req.Guidelines); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update guidelines",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Guidelines updated successfully",
	})
}

// ResetGuidelines restores the compiled-in default guidelines.
func (h *AdminHandler) ResetGuidelines(c *fiber.Ctx) error {
	if err := h.guidelines.Reset(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to reset guidelines",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"guidelines": h.guidelines.Get(),
		"message":    "Guidelines reset to default",
	})
}

// ModerationLog lists rejection audit entries, newest first.
func (h *AdminHandler) ModerationLog(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)

	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	var total int64
	database.DB.Model(&models.ModerationRejection{}).Count(&total)

	var entries []models.ModerationRejection
	if err := database.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load moderation log",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// AuditLog lists recorded admin actions, newest first.
func (h *AdminHandler) AuditLog(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)

	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	var total int64
	database.DB.Model(&models.AuditLog{}).Count(&total)

	var entries []models.AuditLog
	if err := database.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load audit log",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"meta": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

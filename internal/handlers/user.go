package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/models"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

type identifyRequest struct {
	GUID string `json:"guid"`
}

// Identify returns the existing identity for a known GUID, or mints a new one.
func (h *UserHandler) Identify(c *fiber.Ctx) error {
	var req identifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if req.GUID != "" {
		var user models.User
		if err := database.DB.Where("guid = ?", req.GUID).First(&user).Error; err == nil {
			return c.JSON(fiber.Map{
				"success": true,
				"guid":    user.GUID,
			})
		}
	}

	user := models.User{
		GUID:      uuid.NewString(),
		CreatedAt: time.Now(),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create user",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"guid":    user.GUID,
	})
}

// Verify confirms a GUID belongs to an existing identity.
func (h *UserHandler) Verify(c *fiber.Ctx) error {
	var req identifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var user models.User
	if err := database.DB.Where("guid = ?", req.GUID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "User not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"guid":    user.GUID,
	})
}

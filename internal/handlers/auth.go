package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/genimagine/backend/internal/config"
	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/middleware"
)

type AuthHandler struct {
	cfg *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

type loginRequest struct {
	Password  string `json:"password"`
	TwoFACode string `json:"two_fa_code"`
}

// Login exchanges the admin password (and TOTP code, when configured) for a
// short-lived capability token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Invalid admin password",
		})
	}

	if h.cfg.AdminTOTPSecret != "" {
		if req.TwoFACode == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success":      false,
				"message":      "Two-factor code required",
				"requires_2fa": true,
			})
		}
		if !totp.Validate(req.TwoFACode, h.cfg.AdminTOTPSecret) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid two-factor code",
			})
		}
	}

	token, err := middleware.GenerateAdminToken(h.cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"message": "Admin authenticated successfully",
	})
}

// Logout revokes the presented token for its remaining lifetime.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, _ := c.Locals("adminToken").(string)
	expiry, _ := c.Locals("adminTokenExpiry").(time.Time)

	if token != "" {
		if err := database.BlacklistToken(token, time.Until(expiry)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to revoke token",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/genimagine/backend/internal/services"
)

// respondServiceError translates the service failure taxonomy into an HTTP
// response. The error field lets clients pick between re-entering the
// password, rephrasing the prompt, or backing off; anything unknown collapses
// to a generic message.
func respondServiceError(c *fiber.Ctx, err error) error {
	if me, ok := services.AsModerationError(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"error":   "moderation_rejected",
			"message": me.Reason,
		})
	}

	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "user_not_found",
			"message": "User not found",
		})
	case errors.Is(err, services.ErrInvalidPassword), errors.Is(err, services.ErrPasswordExpired):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "invalid_password",
			"message": "Invalid or expired password",
		})
	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "quota_exceeded",
			"message": "Password usage limit reached",
		})
	case errors.Is(err, services.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"error":   "rate_limited",
			"message": "The AI service is busy. Please wait a moment and try again",
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "not_found",
			"message": "Not found",
		})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "forbidden",
			"message": "You do not have access to this resource",
		})
	}

	log.Printf("Unhandled service error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "internal",
		"message": "Something went wrong. Please try a different prompt",
	})
}

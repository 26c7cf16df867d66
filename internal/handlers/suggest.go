package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/genimagine/backend/internal/services"
)

type SuggestHandler struct {
	suggestions *services.SuggestionService
}

func NewSuggestHandler(suggestions *services.SuggestionService) *SuggestHandler {
	return &SuggestHandler{suggestions: suggestions}
}

type suggestRequest struct {
	UserGUID string `json:"user_guid"`
	Password string `json:"password"`
	ImageID  string `json:"image_id"`
	Keyword  string `json:"keyword"`
	Language string `json:"language"`
}

// SuggestPrompts returns up to three prompt ideas.
func (h *SuggestHandler) SuggestPrompts(c *fiber.Ctx) error {
	var req suggestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	suggestions, err := h.suggestions.SuggestPrompts(c.Context(), req.UserGUID, req.Password, req.Keyword, req.Language)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"suggestions": suggestions,
	})
}

// SuggestEdits returns up to three edit ideas for an image.
func (h *SuggestHandler) SuggestEdits(c *fiber.Ctx) error {
	var req suggestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.ImageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Image id is required",
		})
	}

	suggestions, err := h.suggestions.SuggestEdits(c.Context(), req.UserGUID, req.Password, req.ImageID, req.Keyword, req.Language)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"suggestions": suggestions,
	})
}

// DescribeImage returns the stored (or lazily generated) description.
func (h *SuggestHandler) DescribeImage(c *fiber.Ctx) error {
	var req suggestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.ImageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Image id is required",
		})
	}

	description, err := h.suggestions.Describe(c.Context(), req.ImageID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"description": description,
	})
}

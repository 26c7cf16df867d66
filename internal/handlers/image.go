package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/models"
	"github.com/genimagine/backend/internal/services"
	"github.com/genimagine/backend/internal/storage"
)

type ImageHandler struct {
	pipeline *services.Pipeline
	files    *storage.FileStore
}

func NewImageHandler(pipeline *services.Pipeline, files *storage.FileStore) *ImageHandler {
	return &ImageHandler{pipeline: pipeline, files: files}
}

type generateRequest struct {
	UserGUID string `json:"user_guid"`
	Password string `json:"password"`
	Prompt   string `json:"prompt"`
}

// Generate creates a new image from a prompt.
func (h *ImageHandler) Generate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Prompt is required",
		})
	}

	image, err := h.pipeline.Generate(c.Context(), req.UserGUID, req.Password, req.Prompt)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    image,
	})
}

type editRequest struct {
	UserGUID   string `json:"user_guid"`
	Password   string `json:"password"`
	ImageID    string `json:"image_id"`
	EditPrompt string `json:"edit_prompt"`
}

// Edit modifies an existing image in place.
func (h *ImageHandler) Edit(c *fiber.Ctx) error {
	var req editRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if req.ImageID == "" || req.EditPrompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Image id and edit prompt are required",
		})
	}

	image, err := h.pipeline.Edit(c.Context(), req.UserGUID, req.Password, req.ImageID, req.EditPrompt)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    image,
	})
}

// Gallery lists the caller's images, newest first.
func (h *ImageHandler) Gallery(c *fiber.Ctx) error {
	userGUID := c.Query("user_guid")
	if userGUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "user_guid is required",
		})
	}

	var images []models.Image
	if err := database.DB.Where("user_guid = ?", userGUID).Order("created_at DESC").Find(&images).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load gallery",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    images,
	})
}

// GetFile serves the image bytes for an id.
func (h *ImageHandler) GetFile(c *fiber.Ctx) error {
	id := c.Params("id")

	var image models.Image
	if err := database.DB.Where("id = ?", id).First(&image).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Image not found",
		})
	}

	if !h.files.Exists(image.Filename) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Image file not found",
		})
	}

	c.Set("Content-Type", "image/png")
	return c.SendFile(h.files.Path(image.Filename))
}

// Delete removes the caller's image and its file.
func (h *ImageHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	userGUID := c.Query("user_guid")
	if userGUID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "user_guid is required",
		})
	}

	if err := h.pipeline.Delete(userGUID, id); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Image deleted successfully",
	})
}

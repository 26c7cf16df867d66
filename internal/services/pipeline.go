package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/genimagine/backend/internal/gemini"
	"github.com/genimagine/backend/internal/models"
	"github.com/genimagine/backend/internal/storage"
)

const generateInstruction = `Generate a high-quality image based on this prompt: %s

Please create a visually appealing and detailed image that matches this description. Return the generated image.`

const editInstruction = `Edit this image according to the following instruction: %s

Please modify the image as requested and return the edited image.`

const describeInstruction = "Describe this image in 5-7 words maximum. Be very brief and simple."

// fallbackDescription is used when the description call fails; a missing
// description never fails the pipeline.
const fallbackDescription = "AI-generated image"

// FileStore is the slice of the image file store the services depend on.
// *storage.FileStore satisfies it.
type FileStore interface {
	Path(filename string) string
	Stage(filename string, data []byte) (*storage.PendingFile, error)
	Read(filename string) ([]byte, error)
	Remove(filename string) error
}

// Pipeline runs the admit -> moderate -> provider -> file -> metadata
// sequence for generation and edits. Stages are linear; a consumed quota unit
// is not refunded when a later stage fails, but metadata writes are undone
// when the file commit fails so a row never points at a missing file.
type Pipeline struct {
	db         *gorm.DB
	files      FileStore
	provider   Provider
	admission  *AdmissionService
	moderation *ModerationService
}

func NewPipeline(db *gorm.DB, files FileStore, provider Provider, admission *AdmissionService, moderation *ModerationService) *Pipeline {
	return &Pipeline{
		db:         db,
		files:      files,
		provider:   provider,
		admission:  admission,
		moderation: moderation,
	}
}

// Generate creates a new image from a prompt.
func (p *Pipeline) Generate(ctx context.Context, userGUID, code, prompt string) (*models.Image, error) {
	adm, err := p.admission.Admit(userGUID, code, OpGenerate)
	if err != nil {
		return nil, err
	}

	if err := p.moderation.Moderate(ctx, prompt, models.ModerationOpGenerate, adm.BypassWatchdog); err != nil {
		return nil, err
	}

	data, err := p.provider.GenerateImage(ctx, fmt.Sprintf(generateInstruction, prompt), nil)
	if err != nil {
		return nil, mapProviderError(err)
	}

	now := time.Now()
	image := models.Image{
		ID:           uuid.NewString(),
		UserGUID:     userGUID,
		Prompt:       prompt,
		Description:  p.describe(ctx, data),
		PasswordCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	image.Filename = image.ID + ".png"
	image.FilePath = p.files.Path(image.Filename)

	pending, err := p.files.Stage(image.Filename, data)
	if err != nil {
		return nil, err
	}

	if err := p.db.Create(&image).Error; err != nil {
		pending.Discard()
		return nil, fmt.Errorf("failed to persist image metadata: %w", err)
	}

	if err := pending.Commit(); err != nil {
		// The metadata row must not outlive a failed rename.
		p.db.Delete(&models.Image{}, "id = ?", image.ID)
		return nil, fmt.Errorf("failed to finalize image file: %w", err)
	}

	return &image, nil
}

// Edit replaces an existing image's contents in place: the id and created_at
// survive, while the file, prompt, description and updated_at change.
func (p *Pipeline) Edit(ctx context.Context, userGUID, code, imageID, editPrompt string) (*models.Image, error) {
	var image models.Image
	if err := p.db.Where("id = ?", imageID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if image.UserGUID != userGUID {
		return nil, ErrForbidden
	}

	adm, err := p.admission.Admit(userGUID, code, OpEdit)
	if err != nil {
		return nil, err
	}

	if err := p.moderation.Moderate(ctx, editPrompt, models.ModerationOpEdit, adm.BypassWatchdog); err != nil {
		return nil, err
	}

	original, err := p.files.Read(image.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read original image: %w", err)
	}

	data, err := p.provider.GenerateImage(ctx, fmt.Sprintf(editInstruction, editPrompt), original)
	if err != nil {
		return nil, mapProviderError(err)
	}

	oldFilename := image.Filename
	newFilename := uuid.NewString() + ".png"

	pending, err := p.files.Stage(newFilename, data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"prompt":      fmt.Sprintf("'%s' + '%s'", image.Prompt, editPrompt),
		"description": p.describe(ctx, data),
		"filename":    newFilename,
		"file_path":   p.files.Path(newFilename),
		"updated_at":  now,
	}
	if err := p.db.Model(&models.Image{}).Where("id = ?", image.ID).Updates(updates).Error; err != nil {
		pending.Discard()
		return nil, fmt.Errorf("failed to update image metadata: %w", err)
	}

	if err := pending.Commit(); err != nil {
		// The row must keep pointing at the old file when the rename fails.
		revert := map[string]interface{}{
			"prompt":      image.Prompt,
			"description": image.Description,
			"filename":    image.Filename,
			"file_path":   image.FilePath,
			"updated_at":  image.UpdatedAt,
		}
		if rbErr := p.db.Model(&models.Image{}).Where("id = ?", image.ID).Updates(revert).Error; rbErr != nil {
			log.Printf("Failed to restore metadata for image %s: %v", image.ID, rbErr)
		}
		pending.Discard()
		return nil, fmt.Errorf("failed to finalize edited image file: %w", err)
	}

	// The replaced file is gone from every record; removal is best effort.
	if err := p.files.Remove(oldFilename); err != nil {
		log.Printf("Failed to remove replaced image file %s: %v", oldFilename, err)
	}

	if err := p.db.Where("id = ?", image.ID).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// Delete removes an image's metadata row and its backing file. Admin callers
// pass an empty userGUID to skip the ownership check.
func (p *Pipeline) Delete(userGUID, imageID string) error {
	var image models.Image
	if err := p.db.Where("id = ?", imageID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if userGUID != "" && image.UserGUID != userGUID {
		return ErrForbidden
	}

	if err := p.db.Delete(&models.Image{}, "id = ?", image.ID).Error; err != nil {
		return err
	}

	if err := p.files.Remove(image.Filename); err != nil {
		log.Printf("Failed to remove image file %s: %v", image.Filename, err)
	}

	return nil
}

func (p *Pipeline) describe(ctx context.Context, image []byte) string {
	description, err := p.provider.GenerateText(ctx, describeInstruction, image)
	if err != nil {
		log.Printf("Failed to describe image: %v", err)
		return fallbackDescription
	}
	description = trimDescription(description)
	if description == "" {
		return fallbackDescription
	}
	return description
}

func mapProviderError(err error) error {
	if errors.Is(err, gemini.ErrRateLimited) {
		return ErrRateLimited
	}
	return fmt.Errorf("provider call failed: %w", err)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/genimagine/backend/internal/gemini"
	"github.com/genimagine/backend/internal/models"
)

const moderationTemplate = `You are the content watchdog for an image generation service. Review the user prompt below against these guidelines:

%s

User prompt: %s

If the prompt complies with the guidelines, respond with exactly "APPROVED" and nothing else. Otherwise respond with one short sentence explaining what about the prompt is not allowed.`

// ModerationService delegates content-policy decisions to the generative
// model itself via a fixed instruction template.
type ModerationService struct {
	db         *gorm.DB
	provider   Provider
	guidelines *GuidelinesStore
}

func NewModerationService(db *gorm.DB, provider Provider, guidelines *GuidelinesStore) *ModerationService {
	return &ModerationService{db: db, provider: provider, guidelines: guidelines}
}

// Moderate returns nil when the prompt may proceed. A rejection comes back as
// *ModerationError and is appended to the audit log; it is a decision, not a
// transient failure, so it is never retried.
func (s *ModerationService) Moderate(ctx context.Context, prompt string, op models.ModerationOperation, bypass bool) error {
	if bypass {
		return nil
	}

	instruction := fmt.Sprintf(moderationTemplate, s.guidelines.Get(), prompt)

	response, err := s.provider.GenerateText(ctx, instruction, nil)
	if err != nil {
		if errors.Is(err, gemini.ErrRateLimited) {
			return ErrRateLimited
		}
		return fmt.Errorf("moderation call failed: %w", err)
	}

	// The model is asked for the exact word APPROVED; tolerate case and
	// whitespace drift since the response is generated text.
	decision := strings.TrimSpace(response)
	if strings.EqualFold(decision, "APPROVED") {
		return nil
	}

	rejection := models.ModerationRejection{
		Prompt:    prompt,
		Reason:    decision,
		Operation: op,
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&rejection).Error; err != nil {
		log.Printf("Failed to record moderation rejection: %v", err)
	}

	return &ModerationError{Reason: decision}
}

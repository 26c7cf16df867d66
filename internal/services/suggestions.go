package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/genimagine/backend/internal/models"
)

const maxSuggestions = 3

// Canned fallbacks from before the provider existed; returned whenever the
// suggestion call fails so the UI always has something to offer.
var (
	fallbackPromptSuggestions = []string{
		"Sunset over mountains",
		"Magical forest cabin",
		"Futuristic neon city",
	}
	fallbackEditSuggestions = []string{
		"Add warm lighting",
		"Make it cooler",
		"Add more details",
	}
)

// SuggestionService produces prompt and edit suggestion lists. Every call
// consumes one suggestion quota unit via the admission service.
type SuggestionService struct {
	db        *gorm.DB
	files     FileStore
	provider  Provider
	admission *AdmissionService
}

func NewSuggestionService(db *gorm.DB, files FileStore, provider Provider, admission *AdmissionService) *SuggestionService {
	return &SuggestionService{db: db, files: files, provider: provider, admission: admission}
}

// SuggestPrompts returns up to three fresh image prompts.
func (s *SuggestionService) SuggestPrompts(ctx context.Context, userGUID, code, keyword, locale string) ([]string, error) {
	if _, err := s.admission.Admit(userGUID, code, OpSuggest); err != nil {
		return nil, err
	}

	var query string
	if keyword != "" {
		query = fmt.Sprintf("Generate 3 creative and descriptive image prompts based on '%s'. Each prompt should be around 6-8 words, providing enough detail to create a vivid mental image. Keep them engaging and inspiring. Format: just list them, one per line.%s", keyword, localeInstruction(locale))
	} else {
		query = fmt.Sprintf("Generate 3 creative and descriptive random image prompts. Each should be around 6-8 words, providing enough detail to create a vivid mental image. Keep them engaging and inspiring. Format: just list them, one per line.%s", localeInstruction(locale))
	}

	text, err := s.provider.GenerateText(ctx, query, nil)
	if err != nil {
		log.Printf("Prompt suggestion call failed: %v", err)
		return fallbackPromptSuggestions, nil
	}

	suggestions := parseSuggestions(text)
	if len(suggestions) == 0 {
		return fallbackPromptSuggestions, nil
	}
	return suggestions, nil
}

// SuggestEdits returns up to three edit ideas for an existing image.
func (s *SuggestionService) SuggestEdits(ctx context.Context, userGUID, code, imageID, keyword, locale string) ([]string, error) {
	var image models.Image
	if err := s.db.Where("id = ?", imageID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := s.admission.Admit(userGUID, code, OpSuggest); err != nil {
		return nil, err
	}

	data, err := s.files.Read(image.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	description := s.ensureDescription(ctx, &image, data)

	var query string
	if keyword != "" {
		query = fmt.Sprintf("This image is described as: %s. Generate 3 creative and descriptive edit suggestions based on the keyword '%s'. Each suggestion should be around 6-8 words, providing clear direction for the edit. Keep them inspiring and actionable. Format: just list them, one per line.%s", description, keyword, localeInstruction(locale))
	} else {
		query = fmt.Sprintf("This image is described as: %s. Generate 3 creative and descriptive edit suggestions. Each should be around 6-8 words, providing clear direction for the edit. Keep them inspiring and actionable. Format: just list them, one per line.%s", description, localeInstruction(locale))
	}

	text, err := s.provider.GenerateText(ctx, query, data)
	if err != nil {
		log.Printf("Edit suggestion call failed: %v", err)
		return fallbackEditSuggestions, nil
	}

	suggestions := parseSuggestions(text)
	if len(suggestions) == 0 {
		return fallbackEditSuggestions, nil
	}
	return suggestions, nil
}

// Describe returns the stored description of an image, generating and saving
// one if it is missing.
func (s *SuggestionService) Describe(ctx context.Context, imageID string) (string, error) {
	var image models.Image
	if err := s.db.Where("id = ?", imageID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	if image.Description != "" {
		return image.Description, nil
	}

	data, err := s.files.Read(image.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}

	return s.ensureDescription(ctx, &image, data), nil
}

// ensureDescription fills in and persists a missing description.
func (s *SuggestionService) ensureDescription(ctx context.Context, image *models.Image, data []byte) string {
	if image.Description != "" {
		return image.Description
	}

	description, err := s.provider.GenerateText(ctx, describeInstruction, data)
	if err != nil {
		log.Printf("Failed to describe image %s: %v", image.ID, err)
		return fallbackDescription
	}
	description = trimDescription(description)
	if description == "" {
		return fallbackDescription
	}

	if err := s.db.Model(&models.Image{}).Where("id = ?", image.ID).Update("description", description).Error; err != nil {
		log.Printf("Failed to save description for image %s: %v", image.ID, err)
	}
	image.Description = description
	return description
}

func localeInstruction(locale string) string {
	switch strings.ToLower(locale) {
	case "fi":
		return " Respond in Finnish."
	case "en":
		return " Respond in English."
	}
	return ""
}

// parseSuggestions splits a model response into clean suggestion lines,
// stripping list markers and numbering.
func parseSuggestions(text string) []string {
	var suggestions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimLeft(line, "0123456789.) ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

func trimDescription(description string) string {
	return strings.TrimSpace(description)
}

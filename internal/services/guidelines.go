package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/models"
)

// GuidelinesStore reads and writes the moderation guidelines text. The value
// is admin-editable external configuration, fetched fresh (through a short
// Redis cache) at the start of every moderation call.
type GuidelinesStore struct {
	db *gorm.DB
}

func NewGuidelinesStore(db *gorm.DB) *GuidelinesStore {
	return &GuidelinesStore{db: db}
}

// Get returns the stored guidelines, or the compiled-in default.
func (g *GuidelinesStore) Get() string {
	if database.Redis != nil {
		var cached string
		if err := database.CacheGet(database.CacheKeyGuidelines, &cached); err == nil && cached != "" {
			return cached
		}
	}

	var setting models.Setting
	err := g.db.Where("key = ?", models.SettingKeyGuidelines).First(&setting).Error
	text := models.DefaultGuidelines
	if err == nil && setting.Value != "" {
		text = setting.Value
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultGuidelines
	}

	if database.Redis != nil {
		database.CacheSet(database.CacheKeyGuidelines, text, database.CacheTTLGuidelines)
	}
	return text
}

// Set replaces the guidelines wholesale.
func (g *GuidelinesStore) Set(text string) error {
	setting := models.Setting{
		Key:       models.SettingKeyGuidelines,
		Value:     text,
		ValueType: "string",
	}
	err := g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&setting).Error
	if err != nil {
		return err
	}
	database.InvalidateGuidelinesCache()
	return nil
}

// Reset removes any stored guidelines so Get falls back to the default.
func (g *GuidelinesStore) Reset() error {
	if err := g.db.Where("key = ?", models.SettingKeyGuidelines).Delete(&models.Setting{}).Error; err != nil {
		return err
	}
	database.InvalidateGuidelinesCache()
	return nil
}

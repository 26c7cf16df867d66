package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/genimagine/backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, guid string) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{GUID: guid, CreatedAt: time.Now()}).Error)
}

func createPassword(t *testing.T, db *gorm.DB, code string, imageLimit, suggestionLimit int, bypass bool, validFor time.Duration) {
	t.Helper()
	require.NoError(t, db.Create(&models.AccessPassword{
		Code:            code,
		ImageLimit:      imageLimit,
		SuggestionLimit: suggestionLimit,
		BypassWatchdog:  bypass,
		ExpiresAt:       time.Now().Add(validFor),
		CreatedAt:       time.Now(),
	}).Error)
}

func usageFor(t *testing.T, db *gorm.DB, guid, code string) models.UsageRecord {
	t.Helper()
	var usage models.UsageRecord
	require.NoError(t, db.Where("user_guid = ? AND password_code = ?", guid, code).First(&usage).Error)
	return usage
}

// fakeProvider is a canned generative-AI provider. Responses are consumed in
// order; call counts are recorded for assertions.
type fakeProvider struct {
	ImageData   []byte
	ImageErr    error
	TextReplies []string
	TextErr     error

	ImageCalls  int
	TextCalls   int
	TextPrompts []string
}

func (f *fakeProvider) GenerateImage(ctx context.Context, prompt string, inputImage []byte) ([]byte, error) {
	f.ImageCalls++
	if f.ImageErr != nil {
		return nil, f.ImageErr
	}
	if f.ImageData != nil {
		return f.ImageData, nil
	}
	return []byte("png-bytes"), nil
}

func (f *fakeProvider) GenerateText(ctx context.Context, prompt string, image []byte) (string, error) {
	f.TextCalls++
	f.TextPrompts = append(f.TextPrompts, prompt)
	if f.TextErr != nil {
		return "", f.TextErr
	}
	if len(f.TextReplies) > 0 {
		reply := f.TextReplies[0]
		if len(f.TextReplies) > 1 {
			f.TextReplies = f.TextReplies[1:]
		}
		return reply, nil
	}
	return "APPROVED", nil
}

package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/genimagine/backend/internal/gemini"
	"github.com/genimagine/backend/internal/models"
	"github.com/genimagine/backend/internal/storage"
)

func setupPipeline(t *testing.T, db *gorm.DB, provider *fakeProvider) (*Pipeline, *storage.FileStore) {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	admission := NewAdmissionService(db)
	moderation := NewModerationService(db, provider, NewGuidelinesStore(db))
	return NewPipeline(db, files, provider, admission, moderation), files
}

func TestGenerateEndToEnd(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 1, 5, false, time.Hour)

	provider := &fakeProvider{
		ImageData:   []byte("first-image"),
		TextReplies: []string{"APPROVED", "A red circle"},
	}
	pipeline, files := setupPipeline(t, db, provider)

	image, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)

	assert.Equal(t, "u1", image.UserGUID)
	assert.Equal(t, "a red circle", image.Prompt)
	assert.Equal(t, "A red circle", image.Description)
	assert.Equal(t, "demo", image.PasswordCode)
	assert.True(t, files.Exists(image.Filename))

	data, err := files.Read(image.Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("first-image"), data)

	usage := usageFor(t, db, "u1", "demo")
	assert.Equal(t, 1, usage.ImagesGenerated)

	// Second call exhausts the quota before the provider is touched.
	imageCallsBefore := provider.ImageCalls
	textCallsBefore := provider.TextCalls
	_, err = pipeline.Generate(context.Background(), "u1", "demo", "another circle")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, imageCallsBefore, provider.ImageCalls)
	assert.Equal(t, textCallsBefore, provider.TextCalls)
}

func TestGenerateBypassSkipsModeration(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo2", 5, 5, true, time.Hour)

	// Description is the only text call the pipeline should make.
	provider := &fakeProvider{TextReplies: []string{"Dark alley scene"}}
	pipeline, _ := setupPipeline(t, db, provider)

	image, err := pipeline.Generate(context.Background(), "u1", "demo2", "something the guidelines disallow")
	require.NoError(t, err)
	assert.Equal(t, "Dark alley scene", image.Description)
	assert.Equal(t, 1, provider.TextCalls)

	var count int64
	db.Model(&models.ModerationRejection{}).Count(&count)
	assert.Zero(t, count)
}

func TestGenerateExpiredPassword(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "old", 5, 5, false, -time.Hour)

	provider := &fakeProvider{}
	pipeline, _ := setupPipeline(t, db, provider)

	_, err := pipeline.Generate(context.Background(), "u1", "old", "a red circle")
	assert.ErrorIs(t, err, ErrPasswordExpired)
	assert.Zero(t, provider.ImageCalls)
	assert.Zero(t, provider.TextCalls)
}

func TestGenerateModerationRejection(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, false, time.Hour)

	provider := &fakeProvider{TextReplies: []string{"Violent content is not allowed."}}
	pipeline, _ := setupPipeline(t, db, provider)

	_, err := pipeline.Generate(context.Background(), "u1", "demo", "a sword fight")
	me, ok := AsModerationError(err)
	require.True(t, ok)
	assert.Equal(t, "Violent content is not allowed.", me.Reason)

	// Rejection happens before the image model is contacted, and the quota
	// unit stays consumed.
	assert.Zero(t, provider.ImageCalls)
	usage := usageFor(t, db, "u1", "demo")
	assert.Equal(t, 1, usage.ImagesGenerated)

	var count int64
	db.Model(&models.Image{}).Count(&count)
	assert.Zero(t, count)
}

func TestGenerateRateLimitedProvider(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, true, time.Hour)

	provider := &fakeProvider{ImageErr: fmt.Errorf("%w: quota", gemini.ErrRateLimited)}
	pipeline, _ := setupPipeline(t, db, provider)

	_, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	assert.ErrorIs(t, err, ErrRateLimited)

	// No metadata row is created; the consumed quota unit is not refunded.
	var count int64
	db.Model(&models.Image{}).Count(&count)
	assert.Zero(t, count)
	usage := usageFor(t, db, "u1", "demo")
	assert.Equal(t, 1, usage.ImagesGenerated)
}

func TestGenerateDescriptionFailureDegrades(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, true, time.Hour)

	provider := &fakeProvider{TextErr: fmt.Errorf("description model down")}
	pipeline, _ := setupPipeline(t, db, provider)

	image, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)
	assert.Equal(t, "AI-generated image", image.Description)
}

func TestEditPreservesIdentityAndReplacesContent(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, false, time.Hour)

	provider := &fakeProvider{
		ImageData:   []byte("original-image"),
		TextReplies: []string{"APPROVED", "A red circle", "APPROVED", "A blue circle"},
	}
	pipeline, files := setupPipeline(t, db, provider)

	original, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)
	originalFilename := original.Filename

	provider.ImageData = []byte("edited-image")
	time.Sleep(10 * time.Millisecond)

	edited, err := pipeline.Edit(context.Background(), "u1", "demo", original.ID, "make it blue")
	require.NoError(t, err)

	assert.Equal(t, original.ID, edited.ID)
	assert.Equal(t, original.CreatedAt.Unix(), edited.CreatedAt.Unix())
	assert.True(t, edited.UpdatedAt.After(original.UpdatedAt))
	assert.Equal(t, "'a red circle' + 'make it blue'", edited.Prompt)
	assert.Equal(t, "A blue circle", edited.Description)

	// New file holds the edited bytes; the replaced file is gone.
	data, err := files.Read(edited.Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("edited-image"), data)
	assert.NotEqual(t, originalFilename, edited.Filename)
	assert.False(t, files.Exists(originalFilename))

	// Edits count against the image quota.
	usage := usageFor(t, db, "u1", "demo")
	assert.Equal(t, 2, usage.ImagesGenerated)
}

// commitFailStore stages into a pending file whose rename cannot succeed.
type commitFailStore struct {
	*storage.FileStore
	failCommit bool
}

func (s *commitFailStore) Stage(filename string, data []byte) (*storage.PendingFile, error) {
	if s.failCommit {
		return &storage.PendingFile{}, nil
	}
	return s.FileStore.Stage(filename, data)
}

func TestEditCommitFailureRestoresMetadata(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, true, time.Hour)

	inner, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	files := &commitFailStore{FileStore: inner}

	provider := &fakeProvider{TextReplies: []string{"A red circle"}}
	admission := NewAdmissionService(db)
	moderation := NewModerationService(db, provider, NewGuidelinesStore(db))
	pipeline := NewPipeline(db, files, provider, admission, moderation)

	original, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)

	files.failCommit = true
	_, err = pipeline.Edit(context.Background(), "u1", "demo", original.ID, "make it blue")
	require.Error(t, err)

	// The row still describes the pre-edit image and its file is intact.
	var image models.Image
	require.NoError(t, db.Where("id = ?", original.ID).First(&image).Error)
	assert.Equal(t, original.Filename, image.Filename)
	assert.Equal(t, original.FilePath, image.FilePath)
	assert.Equal(t, "a red circle", image.Prompt)
	assert.Equal(t, "A red circle", image.Description)
	assert.True(t, inner.Exists(original.Filename))
}

func TestEditUnknownImage(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, false, time.Hour)

	provider := &fakeProvider{}
	pipeline, _ := setupPipeline(t, db, provider)

	_, err := pipeline.Edit(context.Background(), "u1", "demo", "no-such-id", "make it blue")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, provider.ImageCalls)
}

func TestEditForeignImageForbidden(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createUser(t, db, "u2")
	createPassword(t, db, "demo", 5, 5, true, time.Hour)

	provider := &fakeProvider{TextReplies: []string{"A red circle"}}
	pipeline, _ := setupPipeline(t, db, provider)

	image, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)

	_, err = pipeline.Edit(context.Background(), "u2", "demo", image.ID, "make it blue")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, true, time.Hour)

	provider := &fakeProvider{TextReplies: []string{"A red circle"}}
	pipeline, files := setupPipeline(t, db, provider)

	image, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)
	require.True(t, files.Exists(image.Filename))

	require.NoError(t, pipeline.Delete("u1", image.ID))

	var found models.Image
	err = db.Where("id = ?", image.ID).First(&found).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = os.Stat(files.Path(image.Filename))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, pipeline.Delete("u1", image.ID), ErrNotFound)
}

func TestDeleteOwnershipChecks(t *testing.T) {
	db := setupDB(t)
	createUser(t, db, "u1")
	createPassword(t, db, "demo", 5, 5, true, time.Hour)

	provider := &fakeProvider{TextReplies: []string{"A red circle"}}
	pipeline, _ := setupPipeline(t, db, provider)

	image, err := pipeline.Generate(context.Background(), "u1", "demo", "a red circle")
	require.NoError(t, err)

	assert.ErrorIs(t, pipeline.Delete("someone-else", image.ID), ErrForbidden)

	// Admin path skips the ownership check.
	assert.NoError(t, pipeline.Delete("", image.ID))
}

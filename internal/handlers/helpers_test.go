package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/genimagine/backend/internal/config"
	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/middleware"
	"github.com/genimagine/backend/internal/models"
	"github.com/genimagine/backend/internal/services"
	"github.com/genimagine/backend/internal/storage"
)

const testAdminPassword = "correct-horse"

// cannedProvider returns fixed responses so handler tests never leave the
// process.
type cannedProvider struct {
	ImageData []byte
	ImageErr  error
	Text      string
	TextErr   error
}

func (p *cannedProvider) GenerateImage(ctx context.Context, prompt string, inputImage []byte) ([]byte, error) {
	if p.ImageErr != nil {
		return nil, p.ImageErr
	}
	if p.ImageData != nil {
		return p.ImageData, nil
	}
	return []byte("png-bytes"), nil
}

func (p *cannedProvider) GenerateText(ctx context.Context, prompt string, image []byte) (string, error) {
	if p.TextErr != nil {
		return "", p.TextErr
	}
	if p.Text != "" {
		return p.Text, nil
	}
	return "APPROVED", nil
}

type testEnv struct {
	app   *fiber.App
	cfg   *config.Config
	db    *gorm.DB
	files *storage.FileStore
}

// setupApp wires the full route table against an in-memory database, a
// temp-dir file store and a canned provider, mirroring the production wiring.
func setupApp(t *testing.T, provider services.Provider) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	prevDB, prevRedis := database.DB, database.Redis
	database.DB, database.Redis = db, nil
	t.Cleanup(func() {
		database.DB, database.Redis = prevDB, prevRedis
		sqlDB.Close()
	})

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.DefaultCost)
	require.NoError(t, err)
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTExpireHours:    12,
		AdminPasswordHash: string(hash),
		ImageCostUSD:      0.04,
	}

	admission := services.NewAdmissionService(db)
	guidelines := services.NewGuidelinesStore(db)
	moderation := services.NewModerationService(db, provider, guidelines)
	pipeline := services.NewPipeline(db, files, provider, admission, moderation)
	suggestions := services.NewSuggestionService(db, files, provider, admission)

	userHandler := NewUserHandler()
	imageHandler := NewImageHandler(pipeline, files)
	suggestHandler := NewSuggestHandler(suggestions)
	authHandler := NewAuthHandler(cfg)
	adminHandler := NewAdminHandler(cfg, pipeline, guidelines)

	app := fiber.New()
	api := app.Group("/api")

	api.Post("/user/identify", userHandler.Identify)
	api.Post("/user/verify", userHandler.Verify)

	api.Post("/images/generate", imageHandler.Generate)
	api.Post("/images/edit", imageHandler.Edit)
	api.Get("/images/gallery", imageHandler.Gallery)
	api.Get("/images/:id", imageHandler.GetFile)
	api.Delete("/images/:id", imageHandler.Delete)

	api.Post("/ai/suggest-prompts", suggestHandler.SuggestPrompts)
	api.Post("/ai/suggest-edits", suggestHandler.SuggestEdits)
	api.Post("/ai/describe-image", suggestHandler.DescribeImage)

	api.Post("/admin/login", authHandler.Login)

	admin := api.Group("/admin", middleware.AdminRequired(cfg), middleware.AuditLogger())
	admin.Post("/logout", authHandler.Logout)
	admin.Get("/passwords", adminHandler.ListPasswords)
	admin.Post("/passwords", adminHandler.CreatePassword)
	admin.Delete("/passwords/:code", adminHandler.DeletePassword)
	admin.Get("/images", adminHandler.ListImages)
	admin.Delete("/images/:id", adminHandler.DeleteImage)
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/guidelines", adminHandler.GetGuidelines)
	admin.Put("/guidelines", adminHandler.UpdateGuidelines)
	admin.Delete("/guidelines", adminHandler.ResetGuidelines)
	admin.Get("/moderation-log", adminHandler.ModerationLog)
	admin.Get("/audit", adminHandler.AuditLog)

	return &testEnv{app: app, cfg: cfg, db: db, files: files}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/api/admin/login", fiber.Map{"password": testAdminPassword}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) seedUser(t *testing.T, guid string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.User{GUID: guid, CreatedAt: time.Now()}).Error)
}

func (e *testEnv) seedPassword(t *testing.T, code string, imageLimit, suggestionLimit int, bypass bool, validFor time.Duration) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.AccessPassword{
		Code:            code,
		ImageLimit:      imageLimit,
		SuggestionLimit: suggestionLimit,
		BypassWatchdog:  bypass,
		ExpiresAt:       time.Now().Add(validFor),
		CreatedAt:       time.Now(),
	}).Error)
}

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/genimagine/backend/internal/config"
	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/gemini"
	"github.com/genimagine/backend/internal/handlers"
	"github.com/genimagine/backend/internal/middleware"
	"github.com/genimagine/backend/internal/models"
	"github.com/genimagine/backend/internal/services"
	"github.com/genimagine/backend/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Image file store
	files, err := storage.NewFileStore(cfg.ImagesPath)
	if err != nil {
		log.Fatalf("Failed to prepare images directory: %v", err)
	}

	// Services
	provider := gemini.NewClient(cfg)
	admission := services.NewAdmissionService(database.DB)
	guidelines := services.NewGuidelinesStore(database.DB)
	moderation := services.NewModerationService(database.DB, provider, guidelines)
	pipeline := services.NewPipeline(database.DB, files, provider, admission, moderation)
	suggestions := services.NewSuggestionService(database.DB, files, provider, admission)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Generative Imagining API v1.0",
		ServerHeader: "GenImagine",
		BodyLimit:    20 * 1024 * 1024, // 20MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "genimagine-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	userHandler := handlers.NewUserHandler()
	imageHandler := handlers.NewImageHandler(pipeline, files)
	suggestHandler := handlers.NewSuggestHandler(suggestions)
	adminHandler := handlers.NewAdminHandler(cfg, pipeline, guidelines)

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// User identity routes
	api.Post("/user/identify", userHandler.Identify)
	api.Post("/user/verify", userHandler.Verify)

	// Image routes
	api.Post("/images/generate", imageHandler.Generate)
	api.Post("/images/edit", imageHandler.Edit)
	api.Get("/images/gallery", imageHandler.Gallery)
	api.Get("/images/:id", imageHandler.GetFile)
	api.Delete("/images/:id", imageHandler.Delete)

	// AI assistance routes
	api.Post("/ai/suggest-prompts", suggestHandler.SuggestPrompts)
	api.Post("/ai/suggest-edits", suggestHandler.SuggestEdits)
	api.Post("/ai/describe-image", suggestHandler.DescribeImage)

	// Admin routes
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

	// Serve generated images
	app.Static("/images", files.Dir())

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting Generative Imagining API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

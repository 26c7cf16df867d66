package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT (admin capability tokens)
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort int

	// Admin
	AdminPasswordHash string
	AdminTOTPSecret   string

	// Gemini provider
	GeminiAPIKey  string
	GeminiBaseURL string

	// Image storage
	ImagesPath string

	// Coarse cost accounting (USD per generated/edited image)
	ImageCostUSD float64
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a hostname-based value if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32) // 64 character hex string
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Admin sessions will not persist across restarts.")
	}

	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	// Admin password: accept a pre-computed bcrypt hash, or hash the plain
	// value at startup so handlers only ever compare against a hash.
	adminHash := getEnv("ADMIN_PASSWORD_HASH", "")
	if adminHash == "" {
		adminPlain := getEnv("ADMIN_PASSWORD", "")
		if adminPlain == "" {
			log.Println("WARNING: ADMIN_PASSWORD not set - using insecure default!")
			adminPlain = "admin123"
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(adminPlain), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
		adminHash = string(hashed)
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Println("WARNING: GEMINI_API_KEY not set - image generation will fail!")
	}

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "genimagine"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "genimagine"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// JWT
		JWTSecret:      jwtSecret,
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 12),

		// API
		APIPort: getEnvInt("API_PORT", 8080),

		// Admin
		AdminPasswordHash: adminHash,
		AdminTOTPSecret:   getEnv("ADMIN_TOTP_SECRET", ""),

		// Gemini
		GeminiAPIKey:  geminiKey,
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		// Storage
		ImagesPath: getEnv("IMAGES_PATH", "./data/images"),

		// Cost accounting
		ImageCostUSD: getEnvFloat("IMAGE_COST_USD", 0.04),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

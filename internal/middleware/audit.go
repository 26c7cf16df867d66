package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/genimagine/backend/internal/database"
	"github.com/genimagine/backend/internal/models"
)

// AuditLogger middleware records privileged admin actions to the audit log.
// Mount it on the admin group only.
func AuditLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip non-modifying requests
		method := c.Method()
		if method == "GET" || method == "HEAD" || method == "OPTIONS" {
			return c.Next()
		}

		// Skip login/logout: logging credentials-bearing bodies is not wanted
		path := c.Path()
		if strings.HasSuffix(path, "/login") || strings.HasSuffix(path, "/logout") {
			return c.Next()
		}

		ip := c.IP()
		userAgent := c.Get("User-Agent")
		detail := summarizeBody(c)

		// Execute the request
		err := c.Next()

		// Only log successful responses
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 400 {
			entry := models.AuditLog{
				Action:     actionForMethod(method),
				Method:     method,
				Path:       path,
				IPAddress:  ip,
				UserAgent:  userAgent,
				Detail:     detail,
				StatusCode: statusCode,
				CreatedAt:  time.Now(),
			}
			if dbErr := database.DB.Create(&entry).Error; dbErr != nil {
				log.Printf("Failed to write audit log entry: %v", dbErr)
			}
		}

		return err
	}
}

func actionForMethod(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// summarizeBody keeps a bounded slice of the request body for the log entry.
func summarizeBody(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 {
		return ""
	}
	const maxDetail = 500
	if len(body) > maxDetail {
		body = body[:maxDetail]
	}
	return string(body)
}

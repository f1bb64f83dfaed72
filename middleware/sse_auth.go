// middleware/sse_auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates the EventSource connection. Browsers
// cannot set headers on EventSource, so the gateway token and the user id
// ride in query params instead:
//
//	app.Get("/user/progress/stream", middleware.SSEAuthMiddleware(), rewardService.StreamUserProgressSSE)
func SSEAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("PROGRESSION_SERVICE_TOKEN")

	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		userID := strings.TrimSpace(c.Query("user_id"))

		if token == "" || userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or user_id in query",
			})
		}

		if token != expectedToken {
			log.Printf("[SSEAuth] ❌ Invalid token for %s (prefix: %.10s...)", c.Path(), token)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

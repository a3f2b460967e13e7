// middleware/service_auth.go
package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// ServiceAuthMiddleware guards admin routes (milestone grants) with a
// shared service token. External validators (form backend, distribution
// checker) call these routes, never end users.
func ServiceAuthMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Service-Token")
		if token == "" || token != expectedToken {
			log.Printf("🚫 [SERVICE_AUTH] rejected request on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}

// handlers/health.go
package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var startedAt = time.Now()

// SetupHealthRoutes registers /healthz. Uptime monitors get the bare
// plain-text shape they expect; everything else gets JSON. Which
// callers count as monitors is configuration, not a hardcoded sniff.
func SetupHealthRoutes(app *fiber.App, monitorUAPrefixes []string) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ua := c.Get("User-Agent")
		for _, prefix := range monitorUAPrefixes {
			if prefix != "" && strings.HasPrefix(ua, prefix) {
				return c.SendString("OK")
			}
		}
		return c.JSON(fiber.Map{
			"status":         "ok",
			"uptime_seconds": int64(time.Since(startedAt).Seconds()),
		})
	})
}

// handlers/bot_routes.go
package handlers

import (
	"encoding/json"
	"log"

	"mariocoin-amg/bot"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
)

// SetupBotRoutes registers the secret-path webhook Telegram posts
// updates to. The secret lives in the path, so anything else 404s.
func SetupBotRoutes(app *fiber.App, b *bot.Bot, webhookSecret string) {
	app.Post("/bot/:secret", func(c *fiber.Ctx) error {
		if c.Params("secret") != webhookSecret {
			return c.SendStatus(fiber.StatusNotFound)
		}
		var update tgbotapi.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			log.Printf("❌ [BOT] bad update payload: %v", err)
			return c.SendStatus(fiber.StatusBadRequest)
		}
		b.HandleUpdate(update)
		return c.SendString("OK")
	})
}

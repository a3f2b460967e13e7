// middleware/telegram_auth.go
package middleware

import (
	"errors"
	"log"

	"mariocoin-amg/services"
	"mariocoin-amg/utils"

	"github.com/gofiber/fiber/v2"
)

// InitDataHeader carries the Telegram WebApp auth payload on every
// secured request.
const InitDataHeader = "X-Telegram-Init-Data"

// TelegramAuthMiddleware verifies the WebApp initData signature and
// resolves the caller's account. Handlers behind it can rely on
// c.Locals("account_id") and c.Locals("telegram_user").
//
// Account creation happens only at POST /auth/telegram; every other
// secured route expects the account to already exist.
func TelegramAuthMiddleware(botToken string, ledger *services.LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		initData := c.Get(InitDataHeader)
		if initData == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing " + InitDataHeader + " header",
			})
		}

		user, err := utils.ValidateInitData(initData, botToken)
		if err != nil {
			log.Printf("🚫 [TG_AUTH] rejected init data on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid telegram auth payload",
			})
		}

		c.Locals("telegram_user", user)

		acc, err := ledger.AccountByTelegramID(user.ID)
		if err != nil {
			if errors.Is(err, services.ErrAccountNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "account not found — call /auth/telegram first",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}

		c.Locals("account_id", acc.ID)
		c.Locals("account", acc)
		return c.Next()
	}
}

// RegisterAuthMiddleware is the lighter variant for the registration
// endpoint: it validates the signature but does not require an account.
func RegisterAuthMiddleware(botToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		initData := c.Get(InitDataHeader)
		if initData == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing " + InitDataHeader + " header",
			})
		}
		user, err := utils.ValidateInitData(initData, botToken)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid telegram auth payload",
			})
		}
		c.Locals("telegram_user", user)
		return c.Next()
	}
}

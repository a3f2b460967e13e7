package handlers

import (
	"errors"
	"log"
	"time"

	"mariocoin-amg/services"

	"github.com/gofiber/fiber/v2"
)

// ledgerError maps structured ledger errors onto HTTP responses. The
// ledger itself never produces display strings.
func ledgerError(c *fiber.Ctx, err error) error {
	var cooldown *services.CooldownError
	var notReady *services.NotReadyError

	switch {
	case errors.As(err, &cooldown):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":               "cooldown active",
			"activity":            cooldown.Kind,
			"retry_after_seconds": int64(cooldown.Remaining / time.Second),
		})
	case errors.As(err, &notReady):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":               "mining cycle not complete",
			"retry_after_seconds": int64(notReady.Remaining / time.Second),
		})
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrUnknownMilestone):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrInsufficientStake),
		errors.Is(err, services.ErrNothingToClaim),
		errors.Is(err, services.ErrAlreadyGranted),
		errors.Is(err, services.ErrNoActiveSession):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAccountNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("❌ ledger error on %s: %v", c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

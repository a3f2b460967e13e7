// handlers/ledger_routes.go
package handlers

import (
	"strconv"
	"time"

	"mariocoin-amg/middleware"
	"mariocoin-amg/models"
	"mariocoin-amg/services"
	"mariocoin-amg/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupLedgerRoutes wires every account-facing route. All dependencies
// arrive explicitly; nothing reads globals at request time.
func SetupLedgerRoutes(
	app *fiber.App,
	botToken string,
	serviceToken string,
	ledger *services.LedgerService,
	leaderboard *services.LeaderboardService,
	referrals *services.ReferralService,
) {
	// Registration: signature check only, account may not exist yet.
	app.Post("/auth/telegram", middleware.RegisterAuthMiddleware(botToken), func(c *fiber.Ctx) error {
		user := c.Locals("telegram_user").(*utils.WebAppUser)

		var req struct {
			ReferralCode string `json:"referral_code"`
		}
		_ = c.BodyParser(&req) // body optional

		acc, created, err := ledger.EnsureAccount(user.ID, user.FirstName, user.Username, user.LanguageCode, req.ReferralCode)
		if err != nil {
			return ledgerError(c, err)
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		payload, err := accountPayload(ledger, acc)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.Status(status).JSON(payload)
	})

	// Account auth is attached per route, not as a "/" group: a root
	// prefix group would capture every route registered after it,
	// including the admin and webhook endpoints that carry no initData.
	auth := middleware.TelegramAuthMiddleware(botToken, ledger)

	app.Get("/me", auth, func(c *fiber.Ctx) error {
		acc := c.Locals("account").(*models.Account)
		payload, err := accountPayload(ledger, acc)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(payload)
	})

	app.Get("/me/activities", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		activities, err := ledger.Activities(accountID, limit)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(activities)
	})

	app.Get("/me/milestones", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		ms, err := ledger.Milestones(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(ms)
	})

	// Timed games
	app.Post("/games/daily", auth, playHandler(ledger, models.ActivityDaily))
	app.Post("/games/luck", auth, playHandler(ledger, models.ActivityLuck))

	// Mining
	app.Post("/mining/start", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		if err := ledger.StartMining(accountID); err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"message": "mining started", "cycle_seconds": int64(services.MiningCycle / time.Second)})
	})

	app.Post("/mining/claim", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		reward, err := ledger.CompleteMining(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"reward": reward})
	})

	app.Get("/mining/status", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		status, err := ledger.MiningStatus(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(miningPayload(status))
	})

	// Staking
	app.Post("/staking/stake", auth, amountHandler(ledger, func(id string, amount int64) (*models.Account, error) {
		return ledger.Stake(id, amount)
	}))
	app.Post("/staking/unstake", auth, amountHandler(ledger, func(id string, amount int64) (*models.Account, error) {
		return ledger.Unstake(id, amount)
	}))

	app.Get("/staking/rewards", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		pending, err := ledger.PendingStakingRewards(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"pending": pending})
	})

	app.Post("/staking/claim", auth, func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		claimed, err := ledger.ClaimStakingRewards(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"claimed": claimed})
	})

	// Leaderboard + referrals
	app.Get("/leaderboard", auth, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		entries, err := leaderboard.Top(limit)
		if err != nil {
			return ledgerError(c, err)
		}
		accountID := c.Locals("account_id").(string)
		rank, err := leaderboard.RankOf(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"entries": entries, "my_rank": rank})
	})

	app.Get("/referrals", auth, func(c *fiber.Ctx) error {
		acc := c.Locals("account").(*models.Account)
		stats, err := referrals.StatsFor(acc)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(stats)
	})

	// Milestone grants arrive from external validators, not end users.
	admin := app.Group("/admin", middleware.ServiceAuthMiddleware(serviceToken))
	admin.Post("/milestones", func(c *fiber.Ctx) error {
		var req struct {
			TelegramID int64  `json:"telegram_id"`
			Code       string `json:"code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		acc, err := ledger.AccountByTelegramID(req.TelegramID)
		if err != nil {
			return ledgerError(c, err)
		}
		bonus, err := ledger.GrantMilestone(acc.ID, req.Code)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"granted": req.Code, "bonus": bonus})
	})
}

func playHandler(ledger *services.LedgerService, kind models.ActivityKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := c.Locals("account_id").(string)
		reward, err := ledger.PlayTimedActivity(accountID, kind)
		if err != nil {
			return ledgerError(c, err)
		}
		acc, err := ledger.AccountByID(accountID)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(fiber.Map{"reward": reward, "balance": acc.Balance})
	}
}

func amountHandler(ledger *services.LedgerService, op func(string, int64) (*models.Account, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Amount int64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		accountID := c.Locals("account_id").(string)
		acc, err := op(accountID, req.Amount)
		if err != nil {
			return ledgerError(c, err)
		}
		payload, err := accountPayload(ledger, acc)
		if err != nil {
			return ledgerError(c, err)
		}
		return c.JSON(payload)
	}
}

func accountPayload(ledger *services.LedgerService, acc *models.Account) (fiber.Map, error) {
	pending, err := ledger.PendingStakingRewards(acc.ID)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"id":                      acc.ID,
		"telegram_id":             acc.TelegramID,
		"first_name":              acc.FirstName,
		"username":                acc.Username,
		"balance":                 acc.Balance,
		"lifetime_earned":         acc.LifetimeEarned,
		"staked_amount":           acc.StakedAmount,
		"staking_started_at":      acc.StakingStartedAt,
		"staking_rewards_claimed": acc.StakingRewardsClaimed,
		"pending_staking_rewards": pending,
		"referral_code":           acc.ReferralCode,
		"last_daily_play_at":      acc.LastDailyPlayAt,
		"last_luck_play_at":       acc.LastLuckPlayAt,
		"mining_started_at":       acc.MiningStartedAt,
	}, nil
}

func miningPayload(status *services.MiningStatus) fiber.Map {
	return fiber.Map{
		"state":             status.State,
		"elapsed_seconds":   int64(status.Elapsed / time.Second),
		"remaining_seconds": int64(status.Remaining / time.Second),
		"progress":          status.Progress,
	}
}

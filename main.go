package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mariocoin-amg/bot"
	"mariocoin-amg/handlers"
	"mariocoin-amg/models"
	"mariocoin-amg/services"
	"mariocoin-amg/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	// Everything required is checked here, once. Handlers never see a
	// half-configured application.
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		log.Fatal("BOT_TOKEN environment variable not set")
	}
	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Fatal("WEBHOOK_SECRET environment variable not set")
	}
	serviceToken := os.Getenv("SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("SERVICE_TOKEN environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Activity{},
		&models.Milestone{},
		&models.Referral{},
		&models.LeaderboardEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledger := services.NewLedgerService(db)
	leaderboard := services.NewLeaderboardService(db)
	referrals := services.NewReferralService(db, "")

	tgBot, err := bot.New(botToken, ledger, leaderboard, referrals)
	if err != nil {
		log.Fatal("failed to initialize telegram bot:", err)
	}
	referrals.BotUsername = tgBot.Username()

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Telegram-Init-Data, X-Service-Token",
		MaxAge:       86400,
	}))

	monitorUAs := strings.Split(os.Getenv("MONITOR_UA_PREFIXES"), ",")
	for i := range monitorUAs {
		monitorUAs[i] = strings.TrimSpace(monitorUAs[i])
	}

	handlers.SetupHealthRoutes(app, monitorUAs)
	handlers.SetupLedgerRoutes(app, botToken, serviceToken, ledger, leaderboard, referrals)
	handlers.SetupBotRoutes(app, tgBot, webhookSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Webhook when we have a public URL (hosted), long polling otherwise.
	publicURL := strings.TrimRight(os.Getenv("PUBLIC_URL"), "/")
	if publicURL != "" {
		if err := tgBot.RegisterWebhook(publicURL, webhookSecret); err != nil {
			log.Fatal("failed to register telegram webhook:", err)
		}
	} else {
		go tgBot.StartPolling(ctx)
	}

	leaderboard.StartSnapshotScheduler(5 * time.Minute)
	go workers.PollMiningReady(ctx, db, tgBot, time.Minute)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Leaderboard snapshot scheduler running (every 5m)")
	log.Println("✅ Mining-ready notifier running (every 1m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
}

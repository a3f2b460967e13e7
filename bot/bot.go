// bot/bot.go
package bot

import (
	"context"
	"fmt"
	"log"

	"mariocoin-amg/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Bot is the Telegram front-end. All dependencies are injected at
// construction; a missing token fails here, not at handler time.
type Bot struct {
	api         *tgbotapi.BotAPI
	ledger      *services.LedgerService
	leaderboard *services.LeaderboardService
	referrals   *services.ReferralService
	printer     *message.Printer
}

func New(
	token string,
	ledger *services.LedgerService,
	leaderboard *services.LeaderboardService,
	referrals *services.ReferralService,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Printf("🤖 Bot authorized as @%s", api.Self.UserName)
	return &Bot{
		api:         api,
		ledger:      ledger,
		leaderboard: leaderboard,
		referrals:   referrals,
		printer:     message.NewPrinter(language.Romanian),
	}, nil
}

func (b *Bot) Username() string { return b.api.Self.UserName }

// RegisterWebhook points Telegram at the secret webhook path. Called
// at startup when a public URL is configured.
func (b *Bot) RegisterWebhook(publicURL, secret string) error {
	wh, err := tgbotapi.NewWebhook(fmt.Sprintf("%s/bot/%s", publicURL, secret))
	if err != nil {
		return err
	}
	if _, err := b.api.Request(&tgbotapi.DeleteWebhookConfig{}); err != nil {
		return err
	}
	if _, err := b.api.Request(wh); err != nil {
		return err
	}
	log.Printf("✅ Webhook registered at %s/bot/***", publicURL)
	return nil
}

// StartPolling runs the long-polling loop. Used when no public URL is
// configured (local development).
func (b *Bot) StartPolling(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	log.Println("🤖 Bot polling for updates...")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("Bot polling stopped.")
			return
		case update := <-updates:
			b.HandleUpdate(update)
		}
	}
}

// HandleUpdate dispatches one Telegram update, whether it arrived via
// webhook or polling.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("❌ [BOT] send failed: %v", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

// NotifyMiningReady pings a user whose mining cycle completed. Called
// by the background worker.
func (b *Bot) NotifyMiningReady(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, msgMiningReadyPing)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}

// bot/handlers.go
package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"mariocoin-amg/models"
	"mariocoin-amg/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCommand(m *tgbotapi.Message) {
	switch m.Command() {
	case "start":
		b.cmdStart(m)
	case "broscute", "balance":
		b.cmdBalance(m)
	case "daily":
		b.cmdPlay(m, models.ActivityDaily, "Jocul zilnic")
	case "noroc", "luck":
		b.cmdPlay(m, models.ActivityLuck, "Jocul norocului")
	case "mining":
		b.cmdMining(m)
	case "staking":
		b.cmdStaking(m)
	case "top":
		b.cmdTop(m)
	case "invite":
		b.cmdInvite(m)
	default:
		b.reply(m.Chat.ID, "Comenzi: /broscute /daily /noroc /mining /staking /top /invite")
	}
}

// account resolves the sender's ledger account, nudging unknown users
// towards /start.
func (b *Bot) account(m *tgbotapi.Message) *models.Account {
	acc, err := b.ledger.AccountByTelegramID(m.From.ID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			b.reply(m.Chat.ID, msgNeedStart)
		} else {
			log.Printf("❌ [BOT] account lookup failed: %v", err)
		}
		return nil
	}
	return acc
}

func (b *Bot) cmdStart(m *tgbotapi.Message) {
	referralCode := strings.TrimSpace(m.CommandArguments())
	acc, created, err := b.ledger.EnsureAccount(
		m.From.ID, m.From.FirstName, m.From.UserName, m.From.LanguageCode, referralCode,
	)
	if err != nil {
		log.Printf("❌ [BOT] ensure account failed: %v", err)
		return
	}

	text := fmt.Sprintf("%s\n\n💰 Ai %s broșcuțe.", msgWelcome, b.printer.Sprintf("%d", acc.Balance))
	if created {
		text = fmt.Sprintf("🎁 Ai primit %d broșcuțe de bun venit!\n\n%s", acc.Balance, msgWelcome)
	}

	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇷🇴 Română", "lang_ro"),
			tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", "lang_en"),
		),
	)
	b.send(msg)
}

func (b *Bot) cmdBalance(m *tgbotapi.Message) {
	acc := b.account(m)
	if acc == nil {
		return
	}
	b.reply(m.Chat.ID, b.balanceText(acc.Balance, acc.LifetimeEarned))
}

func (b *Bot) cmdPlay(m *tgbotapi.Message, kind models.ActivityKind, label string) {
	acc := b.account(m)
	if acc == nil {
		return
	}
	reward, err := b.ledger.PlayTimedActivity(acc.ID, kind)
	if err != nil {
		b.reply(m.Chat.ID, b.errText(err))
		return
	}
	b.reply(m.Chat.ID, b.rewardText(label, reward, acc.Balance+reward))
}

func (b *Bot) cmdMining(m *tgbotapi.Message) {
	acc := b.account(m)
	if acc == nil {
		return
	}
	status, err := b.ledger.MiningStatus(acc.ID)
	if err != nil {
		b.reply(m.Chat.ID, b.errText(err))
		return
	}

	msg := tgbotapi.NewMessage(m.Chat.ID, b.miningStatusText(status))
	msg.ParseMode = tgbotapi.ModeMarkdown
	switch status.State {
	case services.MiningNotStarted:
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⛏ Pornește minarea", "mine_start"),
		))
	case services.MiningReadyToClaim:
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🐸 Revendică 5000", "mine_claim"),
		))
	}
	b.send(msg)
}

func (b *Bot) cmdStaking(m *tgbotapi.Message) {
	acc := b.account(m)
	if acc == nil {
		return
	}
	pending, err := b.ledger.PendingStakingRewards(acc.ID)
	if err != nil {
		b.reply(m.Chat.ID, b.errText(err))
		return
	}

	msg := tgbotapi.NewMessage(m.Chat.ID, b.stakingText(acc.StakedAmount, pending, acc.StakingRewardsClaimed))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if pending > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌱 Revendică recompensele", "stake_claim"),
		))
	}
	b.send(msg)
}

func (b *Bot) cmdTop(m *tgbotapi.Message) {
	acc := b.account(m)
	if acc == nil {
		return
	}
	entries, err := b.leaderboard.Top(10)
	if err != nil {
		b.reply(m.Chat.ID, b.errText(err))
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 *Top broscari*\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		prefix := fmt.Sprintf("%d.", e.Rank)
		if i < len(medals) {
			prefix = medals[i]
		}
		name := e.FirstName
		if e.Username != "" {
			name = "@" + e.Username
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s\n", prefix, name, b.printer.Sprintf("%d", e.LifetimeEarned)))
	}
	if rank, err := b.leaderboard.RankOf(acc.ID); err == nil {
		sb.WriteString(fmt.Sprintf("\n📍 Locul tău: *%d*", rank))
	}
	b.reply(m.Chat.ID, sb.String())
}

func (b *Bot) cmdInvite(m *tgbotapi.Message) {
	acc := b.account(m)
	if acc == nil {
		return
	}
	stats, err := b.referrals.StatsFor(acc)
	if err != nil {
		b.reply(m.Chat.ID, b.errText(err))
		return
	}
	b.reply(m.Chat.ID, fmt.Sprintf(
		"🤝 *Invită-ți prietenii!*\n\n"+
			"Primești %d broșcuțe pentru fiecare prieten care se alătură, iar el primește %d.\n\n"+
			"🔗 %s\n\n"+
			"👥 Invitați până acum: *%d*\n💰 Bonus câștigat: *%s*",
		services.ReferrerBonus, services.ReferredBonus,
		stats.InviteLink, stats.Invited, b.printer.Sprintf("%d", stats.BonusEarned),
	))
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("❌ [BOT] callback ack failed: %v", err)
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	acc, err := b.ledger.AccountByTelegramID(cb.From.ID)
	if err != nil {
		b.reply(chatID, msgNeedStart)
		return
	}

	switch cb.Data {
	case "lang_ro", "lang_en":
		lang := strings.TrimPrefix(cb.Data, "lang_")
		if err := b.ledger.SetLanguage(acc.ID, lang); err != nil {
			log.Printf("❌ [BOT] language update failed: %v", err)
		}
		text := msgLangRO
		if lang == "en" {
			text = msgLangEN
		}
		edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)

	case "mine_start":
		if err := b.ledger.StartMining(acc.ID); err != nil {
			b.reply(chatID, b.errText(err))
			return
		}
		b.reply(chatID, "⛏ Minarea a pornit! Revino în 24h să-ți revendici broșcuțele.")

	case "mine_claim":
		reward, err := b.ledger.CompleteMining(acc.ID)
		if err != nil {
			b.reply(chatID, b.errText(err))
			return
		}
		b.reply(chatID, b.rewardText("Minare", reward, acc.Balance+reward))

	case "stake_claim":
		claimed, err := b.ledger.ClaimStakingRewards(acc.ID)
		if err != nil {
			b.reply(chatID, b.errText(err))
			return
		}
		b.reply(chatID, b.rewardText("Staking", claimed, acc.Balance+claimed))
	}
}

func (b *Bot) errText(err error) string {
	var cooldown *services.CooldownError
	var notReady *services.NotReadyError
	switch {
	case errors.As(err, &cooldown):
		return cooldownText(cooldown.Remaining)
	case errors.As(err, &notReady):
		return cooldownText(notReady.Remaining)
	case errors.Is(err, services.ErrNoActiveSession):
		return "⛏ Niciun ciclu de minare activ. Trimite /mining ca să pornești unul."
	case errors.Is(err, services.ErrNothingToClaim):
		return "🌱 Nicio recompensă de revendicat încă."
	case errors.Is(err, services.ErrInsufficientBalance):
		return "💸 Nu ai destule broșcuțe."
	case errors.Is(err, services.ErrAccountNotFound):
		return msgNeedStart
	}
	log.Printf("❌ [BOT] ledger error: %v", err)
	return "😕 Ceva n-a mers. Încearcă din nou."
}

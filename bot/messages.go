// bot/messages.go
package bot

import (
	"fmt"
	"time"

	"mariocoin-amg/services"
)

const (
	msgWelcome = "🚀 Bun venit la MarioCoinAMG!\n" +
		"🌱 Construiește-ți viitorul verde!\n\n" +
		"Alege limba preferată:"

	msgLangRO = "🚀 *MarioCoinAMG - Ecosistem Verde*\n\n" +
		"🌱 Adună broșcuțe cu /daily și /noroc\n" +
		"⛏ Pornește minarea cu /mining\n" +
		"💰 Broșcuțe → MARIO tokens"

	msgLangEN = "🚀 *MarioCoinAMG - Green Ecosystem*\n\n" +
		"🌱 Collect broșcuțe with /daily and /noroc\n" +
		"⛏ Start mining with /mining\n" +
		"💰 Broșcuțe → MARIO tokens"

	msgNeedStart = "🐸 Nu te-am găsit încă. Trimite /start ca să-ți deschizi contul!"

	msgMiningReadyPing = "⛏ *Ciclul de minare s-a încheiat!*\n" +
		"Trimite /mining ca să-ți revendici cele 5000 de broșcuțe. 🐸"
)

func (b *Bot) balanceText(balance, lifetime int64) string {
	return fmt.Sprintf(
		"🐸 *Broșcuțe MarioCoinAMG*\n\n"+
			"💰 Balanța ta: *%s broșcuțe*\n"+
			"🌟 Total câștigat: *%s*\n"+
			"🪙 Rate conversie: *10000 broșcuțe = 100 MARIO*",
		b.printer.Sprintf("%d", balance),
		b.printer.Sprintf("%d", lifetime),
	)
}

func (b *Bot) rewardText(kind string, reward, balance int64) string {
	return fmt.Sprintf(
		"🎉 %s: ai câștigat *%s broșcuțe*!\n💰 Balanța: *%s*",
		kind, b.printer.Sprintf("%d", reward), b.printer.Sprintf("%d", balance),
	)
}

func (b *Bot) stakingText(staked, pending, claimed int64) string {
	return fmt.Sprintf(
		"🏦 *Staking MarioCoinAMG*\n\n"+
			"🔒 În staking: *%s broșcuțe*\n"+
			"🌱 Recompense în așteptare: *%s*\n"+
			"✅ Deja revendicate: *%s*\n\n"+
			"Dobândă simplă de 1%%/zi din suma aflată în staking.",
		b.printer.Sprintf("%d", staked),
		b.printer.Sprintf("%d", pending),
		b.printer.Sprintf("%d", claimed),
	)
}

func (b *Bot) miningStatusText(status *services.MiningStatus) string {
	switch status.State {
	case services.MiningNotStarted:
		return "⛏ *Minare*\n\nNiciun ciclu activ. Apasă butonul ca să pornești un ciclu de 24h."
	case services.MiningReadyToClaim:
		return "⛏ *Minare*\n\n✅ Ciclul s-a încheiat! Revendică-ți cele *5000 de broșcuțe*."
	default:
		return fmt.Sprintf(
			"⛏ *Minare în progres*\n\n⏳ Au trecut %s, mai rămân %s.\n📊 Progres: %.0f%%",
			formatDuration(status.Elapsed), formatDuration(status.Remaining), status.Progress*100,
		)
	}
}

func cooldownText(remaining time.Duration) string {
	return fmt.Sprintf("⏳ Mai așteaptă *%s* înainte să încerci din nou.", formatDuration(remaining))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return "sub un minut"
}

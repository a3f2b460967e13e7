package workers

import (
	"context"
	"log"
	"time"

	"mariocoin-amg/models"
	"mariocoin-amg/services"

	"gorm.io/gorm"
)

// MiningNotifier delivers the "cycle complete" ping. The bot satisfies
// this; tests substitute a recorder.
type MiningNotifier interface {
	NotifyMiningReady(chatID int64) error
}

// PollMiningReady periodically finds accounts whose mining cycle has
// completed and pings each one once per cycle. MiningNotifiedAt is
// compared against MiningStartedAt so a claimed-and-restarted cycle
// becomes eligible for a fresh ping.
func PollMiningReady(ctx context.Context, db *gorm.DB, notifier MiningNotifier, pollInterval time.Duration) {
	log.Println("Starting mining-ready notifier...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Mining-ready notifier stopped.")
			return
		case <-ticker.C:
			if n := notifyReadyAccounts(db, notifier); n > 0 {
				log.Printf("📣 Notified %d account(s) of a completed mining cycle", n)
			}
		}
	}
}

func notifyReadyAccounts(db *gorm.DB, notifier MiningNotifier) int {
	cutoff := time.Now().Add(-services.MiningCycle)

	var accounts []models.Account
	err := db.Where(
		"mining_started_at IS NOT NULL AND mining_started_at <= ? AND (mining_notified_at IS NULL OR mining_notified_at < mining_started_at)",
		cutoff,
	).Limit(200).Find(&accounts).Error
	if err != nil {
		log.Printf("❌ mining notifier query failed: %v", err)
		return 0
	}

	notified := 0
	for _, acc := range accounts {
		if err := notifier.NotifyMiningReady(acc.TelegramID); err != nil {
			log.Printf("❌ mining ping for tg=%d failed: %v", acc.TelegramID, err)
			continue
		}
		now := time.Now()
		if err := db.Model(&models.Account{}).
			Where("id = ?", acc.ID).
			Update("mining_notified_at", now).Error; err != nil {
			log.Printf("❌ mining ping stamp for %s failed: %v", acc.ID, err)
			continue
		}
		notified++
	}
	return notified
}

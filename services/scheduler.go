// services/scheduler.go
package services

import (
	"log"
	"time"

	"mariocoin-amg/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// StartSnapshotScheduler rebuilds the leaderboard snapshot on a fixed
// interval so read traffic never pays for the full sort.
func (s *LeaderboardService) StartSnapshotScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.RebuildSnapshot(); err != nil {
				log.Printf("[Scheduler] leaderboard snapshot failed: %v", err)
			}
		}),
	)
}

// RebuildSnapshot replaces the snapshot table with the current top
// accounts by lifetime earnings, in one transaction.
func (s *LeaderboardService) RebuildSnapshot() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var accounts []models.Account
		if err := tx.Order("lifetime_earned DESC").Limit(LeaderboardSize).Find(&accounts).Error; err != nil {
			return err
		}

		if err := tx.Where("1 = 1").Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}

		now := time.Now()
		entries := make([]models.LeaderboardEntry, len(accounts))
		for i, a := range accounts {
			entries[i] = models.LeaderboardEntry{
				Rank:           i + 1,
				AccountID:      a.ID,
				Username:       a.Username,
				FirstName:      a.FirstName,
				LifetimeEarned: a.LifetimeEarned,
				SnapshotAt:     now,
			}
		}
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
		log.Printf("🏆 Leaderboard snapshot rebuilt (%d entries)", len(entries))
		return nil
	})
}

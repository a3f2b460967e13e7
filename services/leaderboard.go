package services

import (
	"errors"

	"mariocoin-amg/models"

	"gorm.io/gorm"
)

const LeaderboardSize = 100

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// Top returns the materialized snapshot. Falls back to a live query
// when the snapshot has not been built yet (fresh deployment).
func (s *LeaderboardService) Top(limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > LeaderboardSize {
		limit = 10
	}
	var entries []models.LeaderboardEntry
	if err := s.DB.Order("rank ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}
	return s.liveTop(limit)
}

func (s *LeaderboardService) liveTop(limit int) ([]models.LeaderboardEntry, error) {
	var accounts []models.Account
	if err := s.DB.Order("lifetime_earned DESC").Limit(limit).Find(&accounts).Error; err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, len(accounts))
	for i, a := range accounts {
		entries[i] = models.LeaderboardEntry{
			Rank:           i + 1,
			AccountID:      a.ID,
			Username:       a.Username,
			FirstName:      a.FirstName,
			LifetimeEarned: a.LifetimeEarned,
		}
	}
	return entries, nil
}

// RankOf computes the live rank of one account (1-based), counting
// accounts with a strictly higher lifetime total.
func (s *LeaderboardService) RankOf(accountID string) (int64, error) {
	var acc models.Account
	if err := s.DB.Where("id = ?", accountID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	var above int64
	if err := s.DB.Model(&models.Account{}).
		Where("lifetime_earned > ?", acc.LifetimeEarned).
		Count(&above).Error; err != nil {
		return 0, err
	}
	return above + 1, nil
}

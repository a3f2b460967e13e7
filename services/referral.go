package services

import (
	"fmt"

	"mariocoin-amg/models"

	"gorm.io/gorm"
)

type ReferralService struct {
	DB *gorm.DB

	// BotUsername builds the t.me deep link users share.
	BotUsername string
}

func NewReferralService(db *gorm.DB, botUsername string) *ReferralService {
	return &ReferralService{DB: db, BotUsername: botUsername}
}

type ReferralStats struct {
	Code        string `json:"code"`
	InviteLink  string `json:"invite_link"`
	Invited     int64  `json:"invited"`
	BonusEarned int64  `json:"bonus_earned"`
}

// StatsFor summarizes an account's referral performance: how many
// joined with its code and how much the referral bonuses paid.
func (s *ReferralService) StatsFor(acc *models.Account) (*ReferralStats, error) {
	var invited int64
	if err := s.DB.Model(&models.Referral{}).
		Where("referrer_id = ?", acc.ID).
		Count(&invited).Error; err != nil {
		return nil, err
	}

	var bonus int64
	err := s.DB.Model(&models.Activity{}).
		Where("account_id = ? AND kind = ?", acc.ID, models.ActivityReferral).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&bonus).Error
	if err != nil {
		return nil, err
	}

	return &ReferralStats{
		Code:        acc.ReferralCode,
		InviteLink:  s.InviteLink(acc.ReferralCode),
		Invited:     invited,
		BonusEarned: bonus,
	}, nil
}

func (s *ReferralService) InviteLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", s.BotUsername, code)
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Account is the core ledger record for one Telegram identity.
// TelegramID is immutable after creation; FirstName/Username are
// refreshed from the auth payload on every contact.
type Account struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	TelegramID   int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	FirstName    string `gorm:"not null" json:"first_name"`
	Username     string `gorm:"index" json:"username"`
	LanguageCode string `gorm:"size:8;default:'ro'" json:"language_code"`

	// Spendable broșcuțe balance. Never negative.
	Balance        int64 `gorm:"not null;default:0" json:"balance"`
	LifetimeEarned int64 `gorm:"not null;default:0" json:"lifetime_earned"`

	// Staking state. StakingStartedAt is set exactly when StakedAmount
	// goes 0 → positive and cleared when it returns to 0.
	StakedAmount          int64      `gorm:"not null;default:0" json:"staked_amount"`
	StakingStartedAt      *time.Time `json:"staking_started_at,omitempty"`
	StakingRewardsClaimed int64      `gorm:"not null;default:0" json:"staking_rewards_claimed"`

	// Cooldown stamps; nil means eligible / never started.
	LastDailyPlayAt *time.Time `json:"last_daily_play_at,omitempty"`
	LastLuckPlayAt  *time.Time `json:"last_luck_play_at,omitempty"`
	MiningStartedAt *time.Time `json:"mining_started_at,omitempty"`

	// Stamp of the last "mining ready" ping, compared against
	// MiningStartedAt so each cycle is announced at most once.
	MiningNotifiedAt *time.Time `json:"-"`

	ReferralCode string  `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy   *string `gorm:"index" json:"referred_by,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

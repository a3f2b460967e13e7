package models

import "time"

// Referral tracks who invited whom and the signup bonus payout.
// ReferredID is unique: an account can be referred at most once.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"index;not null" json:"referrer_id"`
	ReferredID string `gorm:"uniqueIndex;not null" json:"referred_id"`

	CodeUsed     string     `gorm:"not null" json:"code_used"`
	BonusAwarded bool       `gorm:"default:false" json:"bonus_awarded"`
	AwardedAt    *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}

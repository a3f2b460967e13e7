package models

import "time"

// ActivityKind identifies the source of a credit.
type ActivityKind string

const (
	ActivityRegistration ActivityKind = "registration"
	ActivityDaily        ActivityKind = "daily"
	ActivityLuck         ActivityKind = "luck"
	ActivityMining       ActivityKind = "mining"
	ActivityStaking      ActivityKind = "staking"
	ActivityMilestone    ActivityKind = "milestone"
	ActivityReferral     ActivityKind = "referral"
)

// Activity is an append-only record of one credited reward.
// Rows are written inside the same transaction as the balance change
// and are never mutated afterwards.
type Activity struct {
	ID        string       `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string       `gorm:"index;not null" json:"account_id"`
	Kind      ActivityKind `gorm:"size:32;not null;index" json:"kind"`
	Amount    int64        `gorm:"not null" json:"amount"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

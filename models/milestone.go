package models

import "time"

// Milestone records a one-shot bonus already granted to an account.
// The (AccountID, Code) pair is unique: a flag, once set, is never
// unset and its bonus is paid at most once.
type Milestone struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID   string    `gorm:"uniqueIndex:idx_account_milestone;not null" json:"account_id"`
	Code        string    `gorm:"uniqueIndex:idx_account_milestone;size:64;not null" json:"code"`
	Bonus       int64     `gorm:"not null" json:"bonus"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}

// Known milestone codes and their bonus amounts. External validation
// events (web forms, token distribution checks) land on these.
var MilestoneCatalog = map[string]int64{
	"form_completed":         500,
	"distribution_validated": 1000,
	"channel_joined":         150,
}

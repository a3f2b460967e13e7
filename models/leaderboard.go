package models

import "time"

// LeaderboardEntry is a materialized ranking row, rebuilt on a schedule
// so /leaderboard and /top never pay for a full sort per request.
type LeaderboardEntry struct {
	Rank           int       `gorm:"primaryKey;autoIncrement:false" json:"rank"`
	AccountID      string    `gorm:"index;not null" json:"account_id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LifetimeEarned int64     `gorm:"not null" json:"lifetime_earned"`
	SnapshotAt     time.Time `gorm:"not null" json:"snapshot_at"`
}

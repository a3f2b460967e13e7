package services

import (
	"errors"
	"fmt"
	"time"
)

// Ledger errors are structured and recoverable by the caller; the
// transport layer maps them to response codes. None are process-fatal.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientStake   = errors.New("insufficient staked amount")
	ErrNoActiveSession     = errors.New("no mining session in progress")
	ErrNothingToClaim      = errors.New("no staking rewards to claim")
	ErrAlreadyGranted      = errors.New("milestone bonus already granted")
	ErrUnknownMilestone    = errors.New("unknown milestone code")
	ErrAccountNotFound     = errors.New("account not found")
)

// CooldownError is returned when a timed activity is attempted before
// its window elapsed. Remaining is how long the caller must wait.
type CooldownError struct {
	Kind      string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown, %s remaining", e.Kind, e.Remaining.Round(time.Second))
}

// NotReadyError is returned when a mining claim arrives before the
// 24h cycle completed.
type NotReadyError struct {
	Remaining time.Duration
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("mining cycle not complete, %s remaining", e.Remaining.Round(time.Second))
}

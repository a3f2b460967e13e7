package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"mariocoin-amg/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Economy policy constants.
const (
	RegistrationBonus int64 = 100

	DailyCooldown        = 24 * time.Hour
	DailyRewardMin int64 = 10
	DailyRewardMax int64 = 100

	LuckCooldown        = 300 * time.Second
	LuckRewardMin int64 = 5
	LuckRewardMax int64 = 50

	MiningCycle         = 24 * time.Hour
	MiningReward  int64 = 5000

	// Simple (non-compounding) interest, percent of the currently
	// staked amount per whole elapsed day.
	StakingDailyRatePct int64 = 1

	ReferrerBonus int64 = 250
	ReferredBonus int64 = 50
)

// LedgerService owns all balance-affecting operations for accounts.
// Every mutation runs under a per-account mutex around a DB transaction
// so that two concurrent claims of the same reward window cannot both
// succeed. Accounts are independent units of concurrency; there is no
// global lock.
type LedgerService struct {
	DB *gorm.DB

	// Now is the ledger's single time source; tests override it to
	// simulate elapsed cooldowns.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		DB:    db,
		Now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one account (or one telegram ID
// during account creation). Lock granularity is the account, so the
// cooldown check and the credit apply as one atomic unit.
func (s *LedgerService) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// --- Account lookup ---

func (s *LedgerService) AccountByID(id string) (*models.Account, error) {
	var acc models.Account
	if err := s.DB.Where("id = ?", id).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (s *LedgerService) AccountByTelegramID(tgID int64) (*models.Account, error) {
	var acc models.Account
	if err := s.DB.Where("telegram_id = ?", tgID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// EnsureAccount creates the account on first contact, seeding the
// registration bonus exactly once per telegram ID, and refreshes the
// mutable metadata on later contacts. Returns created=true on first
// creation. A valid referral code wires both signup bonuses.
func (s *LedgerService) EnsureAccount(tgID int64, firstName, username, langCode, referralCode string) (*models.Account, bool, error) {
	l := s.lockFor(fmt.Sprintf("tg:%d", tgID))
	l.Lock()
	defer l.Unlock()

	var existing models.Account
	err := s.DB.Where("telegram_id = ?", tgID).First(&existing).Error
	if err == nil {
		if existing.FirstName != firstName || existing.Username != username {
			// Column-scoped update: a full-record Save here would write
			// back a stale balance over credits committed under the
			// account-ID lock, which this path does not hold.
			existing.FirstName = firstName
			existing.Username = username
			err := s.DB.Model(&models.Account{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"first_name": firstName,
					"username":   username,
				}).Error
			if err != nil {
				return nil, false, err
			}
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	acc := models.Account{
		ID:           uuid.NewString(),
		TelegramID:   tgID,
		FirstName:    firstName,
		Username:     username,
		LanguageCode: langCode,
		ReferralCode: newReferralCode(firstName),
	}

	var referrer *models.Account
	if referralCode != "" {
		var r models.Account
		if err := s.DB.Where("referral_code = ?", referralCode).First(&r).Error; err == nil {
			referrer = &r
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		// Unknown codes are ignored: signup still succeeds.
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&acc).Error; err != nil {
			return err
		}
		if err := s.creditTx(tx, &acc, RegistrationBonus, models.ActivityRegistration); err != nil {
			return err
		}
		if referrer != nil && referrer.ID != acc.ID {
			now := s.Now()
			acc.ReferredBy = &referrer.ID
			ref := models.Referral{
				ID:           uuid.NewString(),
				ReferrerID:   referrer.ID,
				ReferredID:   acc.ID,
				CodeUsed:     referralCode,
				BonusAwarded: true,
				AwardedAt:    &now,
			}
			if err := tx.Create(&ref).Error; err != nil {
				return err
			}
			if err := s.creditTx(tx, &acc, ReferredBonus, models.ActivityReferral); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	// The referrer's credit is its own ledger operation under the
	// referrer's lock; the signup above is already committed.
	if referrer != nil && referrer.ID != acc.ID {
		if _, err := s.Credit(referrer.ID, ReferrerBonus, models.ActivityReferral); err != nil {
			log.Printf("❌ referral bonus for %s failed: %v", referrer.ID, err)
		}
	}

	log.Printf("🐸 New account: tg=%d code=%s referred=%t", tgID, acc.ReferralCode, referrer != nil)
	return &acc, true, nil
}

func newReferralCode(firstName string) string {
	base := slug.Make(firstName)
	if base == "" {
		base = "amg"
	}
	return base + "-" + uuid.NewString()[:8]
}

// SetLanguage stores the user's language choice from the bot keyboard.
func (s *LedgerService) SetLanguage(accountID, lang string) error {
	return s.DB.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("language_code", lang).Error
}

// --- Core credit ---

// Credit adds amount to the balance and lifetime total and appends an
// Activity record. The only failure mode besides storage errors is a
// non-positive amount.
func (s *LedgerService) Credit(accountID string, amount int64, kind models.ActivityKind) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	var acc *models.Account
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		if err := s.creditTx(tx, a, amount, kind); err != nil {
			return err
		}
		acc = a
		return nil
	})
	return acc, err
}

// creditTx applies a credit inside an open transaction. Callers must
// hold the account lock and must have set any other mutated fields on
// acc before calling, so the single Save covers everything.
func (s *LedgerService) creditTx(tx *gorm.DB, acc *models.Account, amount int64, kind models.ActivityKind) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	acc.Balance += amount
	acc.LifetimeEarned += amount
	if err := tx.Save(acc).Error; err != nil {
		return err
	}
	return tx.Create(&models.Activity{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: s.Now(),
	}).Error
}

func lockedAccount(tx *gorm.DB, accountID string) (*models.Account, error) {
	var acc models.Account
	if err := tx.Where("id = ?", accountID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// --- Timed games ---

var timedRewards = map[models.ActivityKind]struct {
	Cooldown time.Duration
	Min, Max int64
}{
	models.ActivityDaily: {DailyCooldown, DailyRewardMin, DailyRewardMax},
	models.ActivityLuck:  {LuckCooldown, LuckRewardMin, LuckRewardMax},
}

func cooldownStamp(acc *models.Account, kind models.ActivityKind) **time.Time {
	switch kind {
	case models.ActivityDaily:
		return &acc.LastDailyPlayAt
	case models.ActivityLuck:
		return &acc.LastLuckPlayAt
	}
	return nil
}

// PlayTimedActivity runs one cooldown-gated game round: checks the
// stamp, draws a uniform reward within the kind's range, credits it and
// re-stamps the cooldown — atomically for the account.
func (s *LedgerService) PlayTimedActivity(accountID string, kind models.ActivityKind) (int64, error) {
	policy, ok := timedRewards[kind]
	if !ok {
		return 0, fmt.Errorf("not a timed activity: %s", kind)
	}

	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	var reward int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		acc, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		now := s.Now()
		stamp := cooldownStamp(acc, kind)
		if *stamp != nil {
			if elapsed := now.Sub(**stamp); elapsed < policy.Cooldown {
				return &CooldownError{Kind: string(kind), Remaining: policy.Cooldown - elapsed}
			}
		}
		reward = policy.Min + rand.Int63n(policy.Max-policy.Min+1)
		*stamp = &now
		return s.creditTx(tx, acc, reward, kind)
	})
	if err != nil {
		return 0, err
	}
	return reward, nil
}

// --- Mining ---

type MiningState string

const (
	MiningNotStarted   MiningState = "not_started"
	MiningInProgress   MiningState = "in_progress"
	MiningReadyToClaim MiningState = "ready_to_claim"
)

type MiningStatus struct {
	State     MiningState
	Elapsed   time.Duration
	Remaining time.Duration
	Progress  float64
}

// StartMining opens a 24h mining cycle. It fails while a cycle is
// running or ready to claim; claiming is what chains the next cycle.
func (s *LedgerService) StartMining(accountID string) error {
	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		acc, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		now := s.Now()
		if acc.MiningStartedAt != nil {
			remaining := MiningCycle - now.Sub(*acc.MiningStartedAt)
			if remaining < 0 {
				remaining = 0
			}
			return &CooldownError{Kind: string(models.ActivityMining), Remaining: remaining}
		}
		acc.MiningStartedAt = &now
		return tx.Save(acc).Error
	})
}

// CompleteMining pays the fixed mining reward once the cycle elapsed
// and immediately restamps the cycle, chaining mining back-to-back.
func (s *LedgerService) CompleteMining(accountID string) (int64, error) {
	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		acc, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		if acc.MiningStartedAt == nil {
			return ErrNoActiveSession
		}
		now := s.Now()
		if elapsed := now.Sub(*acc.MiningStartedAt); elapsed < MiningCycle {
			return &NotReadyError{Remaining: MiningCycle - elapsed}
		}
		acc.MiningStartedAt = &now
		acc.MiningNotifiedAt = nil
		return s.creditTx(tx, acc, MiningReward, models.ActivityMining)
	})
	if err != nil {
		return 0, err
	}
	return MiningReward, nil
}

// MiningStatus is a pure read of the cycle state at the current time.
func (s *LedgerService) MiningStatus(accountID string) (*MiningStatus, error) {
	acc, err := s.AccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if acc.MiningStartedAt == nil {
		return &MiningStatus{State: MiningNotStarted}, nil
	}
	elapsed := s.Now().Sub(*acc.MiningStartedAt)
	if elapsed >= MiningCycle {
		return &MiningStatus{State: MiningReadyToClaim, Elapsed: elapsed, Progress: 1}, nil
	}
	return &MiningStatus{
		State:     MiningInProgress,
		Elapsed:   elapsed,
		Remaining: MiningCycle - elapsed,
		Progress:  float64(elapsed) / float64(MiningCycle),
	}, nil
}

// --- Staking ---

// Stake locks points: balance decreases, staked increases. The start
// stamp is set only on the 0 → positive transition.
func (s *LedgerService) Stake(accountID string, amount int64) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	var acc *models.Account
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		if amount > a.Balance {
			return ErrInsufficientBalance
		}
		a.Balance -= amount
		a.StakedAmount += amount
		if a.StakingStartedAt == nil {
			now := s.Now()
			a.StakingStartedAt = &now
		}
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		acc = a
		return nil
	})
	return acc, err
}

// Unstake releases points back to the balance; the start stamp is
// cleared exactly when the staked amount returns to 0.
func (s *LedgerService) Unstake(accountID string, amount int64) (*models.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	var acc *models.Account
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		a, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		if amount > a.StakedAmount {
			return ErrInsufficientStake
		}
		a.StakedAmount -= amount
		a.Balance += amount
		if a.StakedAmount == 0 {
			a.StakingStartedAt = nil
		}
		if err := tx.Save(a).Error; err != nil {
			return err
		}
		acc = a
		return nil
	})
	return acc, err
}

// PendingStakingRewards recomputes accrued interest from the *current*
// staked amount over whole elapsed days, minus what was already paid.
// Increasing the stake therefore retroactively inflates rewards for
// days elapsed under a smaller stake — the original product behaves
// this way and the formula is kept verbatim (see DESIGN.md).
func (s *LedgerService) PendingStakingRewards(accountID string) (int64, error) {
	acc, err := s.AccountByID(accountID)
	if err != nil {
		return 0, err
	}
	return s.pendingRewards(acc), nil
}

func (s *LedgerService) pendingRewards(acc *models.Account) int64 {
	if acc.StakedAmount == 0 || acc.StakingStartedAt == nil {
		return 0
	}
	days := int64(s.Now().Sub(*acc.StakingStartedAt) / (24 * time.Hour))
	if days <= 0 {
		return 0
	}
	pending := acc.StakedAmount*StakingDailyRatePct*days/100 - acc.StakingRewardsClaimed
	if pending < 0 {
		return 0
	}
	return pending
}

// ClaimStakingRewards pays out the pending interest.
func (s *LedgerService) ClaimStakingRewards(accountID string) (int64, error) {
	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	var claimed int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		acc, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		pending := s.pendingRewards(acc)
		if pending <= 0 {
			return ErrNothingToClaim
		}
		acc.StakingRewardsClaimed += pending
		if err := s.creditTx(tx, acc, pending, models.ActivityStaking); err != nil {
			return err
		}
		claimed = pending
		return nil
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

// --- Milestones ---

// GrantMilestone pays a one-shot bonus tied to an external validation
// event. The flag is never unset and the bonus is paid at most once.
func (s *LedgerService) GrantMilestone(accountID, code string) (int64, error) {
	bonus, ok := models.MilestoneCatalog[code]
	if !ok {
		return 0, ErrUnknownMilestone
	}

	l := s.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		acc, err := lockedAccount(tx, accountID)
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Milestone{}).
			Where("account_id = ? AND code = ?", accountID, code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyGranted
		}
		m := models.Milestone{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			Code:        code,
			Bonus:       bonus,
			CompletedAt: s.Now(),
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return s.creditTx(tx, acc, bonus, models.ActivityMilestone)
	})
	if err != nil {
		return 0, err
	}
	return bonus, nil
}

func (s *LedgerService) Milestones(accountID string) ([]models.Milestone, error) {
	var ms []models.Milestone
	err := s.DB.Where("account_id = ?", accountID).
		Order("completed_at DESC").
		Find(&ms).Error
	return ms, err
}

// --- History ---

func (s *LedgerService) Activities(accountID string, limit int) ([]models.Activity, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var activities []models.Activity
	err := s.DB.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

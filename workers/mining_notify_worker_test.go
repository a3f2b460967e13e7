package workers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"mariocoin-amg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	pinged []int64
	fail   bool
}

func (r *recordingNotifier) NotifyMiningReady(chatID int64) error {
	if r.fail {
		return errors.New("telegram unreachable")
	}
	r.pinged = append(r.pinged, chatID)
	return nil
}

func newWorkerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}))
	return db
}

func seedMiner(t *testing.T, db *gorm.DB, tgID int64, startedAgo time.Duration) *models.Account {
	t.Helper()
	started := time.Now().Add(-startedAgo)
	acc := &models.Account{
		ID:              uuid.New().String(),
		TelegramID:      tgID,
		FirstName:       "Miner",
		ReferralCode:    uuid.New().String()[:8],
		MiningStartedAt: &started,
	}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

func TestNotifyReadyAccountsPingsOncePerCycle(t *testing.T) {
	db := newWorkerDB(t)
	ready := seedMiner(t, db, 100, 25*time.Hour)
	seedMiner(t, db, 200, 2*time.Hour) // still mining, no ping

	notifier := &recordingNotifier{}
	require.Equal(t, 1, notifyReadyAccounts(db, notifier))
	require.Equal(t, []int64{100}, notifier.pinged)

	var reloaded models.Account
	require.NoError(t, db.First(&reloaded, "id = ?", ready.ID).Error)
	require.NotNil(t, reloaded.MiningNotifiedAt)

	// Second sweep finds nothing new.
	require.Equal(t, 0, notifyReadyAccounts(db, notifier))
	require.Len(t, notifier.pinged, 1)
}

func TestNotifyReadyAccountsAfterRestart(t *testing.T) {
	db := newWorkerDB(t)
	acc := seedMiner(t, db, 100, 25*time.Hour)

	notifier := &recordingNotifier{}
	require.Equal(t, 1, notifyReadyAccounts(db, notifier))

	// Claim-and-restart: a fresh cycle started after the last ping
	// must become eligible again once it completes. Backdate both
	// stamps to simulate a cycle restarted 25h ago, pinged before that.
	notified := time.Now().Add(-26 * time.Hour)
	restarted := time.Now().Add(-25 * time.Hour)
	require.NoError(t, db.Model(&models.Account{}).
		Where("id = ?", acc.ID).
		Updates(map[string]interface{}{
			"mining_notified_at": notified,
			"mining_started_at":  restarted,
		}).Error)

	require.Equal(t, 1, notifyReadyAccounts(db, notifier))
	require.Equal(t, []int64{100, 100}, notifier.pinged)
}

func TestNotifyReadyAccountsSkipsStampOnSendFailure(t *testing.T) {
	db := newWorkerDB(t)
	acc := seedMiner(t, db, 100, 25*time.Hour)

	notifier := &recordingNotifier{fail: true}
	require.Equal(t, 0, notifyReadyAccounts(db, notifier))

	var reloaded models.Account
	require.NoError(t, db.First(&reloaded, "id = ?", acc.ID).Error)
	require.Nil(t, reloaded.MiningNotifiedAt)

	// Delivery recovers; the account is still pending.
	notifier.fail = false
	require.Equal(t, 1, notifyReadyAccounts(db, notifier))
}

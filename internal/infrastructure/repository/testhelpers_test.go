package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
	"github.com/orris-inc/offramp/internal/shared/biztime"
)

const (
	testOwner   = "usr_test"
	testAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// setupTestDB opens a file-backed sqlite database with a single connection
// so concurrent callers serialize on it.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offramp.db")
	database, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(
		&models.SellIntentModel{},
		&models.SettlementRecordModel{},
		&models.UnmatchedDepositModel{},
		&models.BalanceAccountModel{},
		&models.LedgerOperationModel{},
	))
	return database
}

func newTestClock() *biztime.ManualClock {
	return biztime.NewManualClock(testNow)
}

func newTestIntent(id string, createdAt time.Time, status intentvo.IntentStatus) *intent.SellIntent {
	dest, err := intentvo.NewPayoutDestination("058", "0123456789", "Ada Obi")
	if err != nil {
		panic(err)
	}
	amount := decimal.NewFromInt(100)
	return intent.ReconstructSellIntent(
		id, testOwner, asset.USDT, asset.NetworkTron, testAddress, nil,
		intent.Quote{SellAmount: amount, ReceiveAmount: amount.Mul(decimal.NewFromInt(1500)), Rate: decimal.NewFromInt(1500)},
		asset.NGN, status, createdAt.Add(30*time.Minute), &dest, 1, createdAt, createdAt,
	)
}

func newTestRecord(t *testing.T, intentID, txHash string) *settlement.Record {
	t.Helper()
	dest, err := intentvo.NewPayoutDestination("058", "0123456789", "Ada Obi")
	require.NoError(t, err)
	return newTestRecordTo(t, intentID, txHash, &dest)
}

func newTestRecordTo(t *testing.T, intentID, txHash string, dest *intentvo.PayoutDestination) *settlement.Record {
	t.Helper()
	rec, err := settlement.NewRecord(settlement.NewRecordParams{
		IntentID:            intentID,
		Owner:               testOwner,
		Asset:               asset.USDT,
		Network:             asset.NetworkTron,
		ReceiveCurrency:     asset.NGN,
		ObservedAmount:      decimal.RequireFromString("99.8"),
		ObservedTxHash:      txHash,
		ObservedAt:          testNow,
		QuotedSellAmount:    decimal.NewFromInt(100),
		QuotedReceiveAmount: decimal.NewFromInt(150000),
		ActualReceiveAmount: decimal.NewFromInt(148702),
		ActualRate:          decimal.NewFromInt(1490),
		Destination:         dest,
	}, testNow)
	require.NoError(t, err)
	return rec
}

package models

import (
	"time"

	"github.com/orris-inc/offramp/internal/shared/constants"
)

// BalanceAccountModel holds balances in integer minor units.
type BalanceAccountModel struct {
	Owner     string `gorm:"primaryKey;size:64"`
	Asset     string `gorm:"primaryKey;size:10"`
	Available int64  `gorm:"not null;default:0"`
	Pending   int64  `gorm:"not null;default:0"`
	Settled   int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (BalanceAccountModel) TableName() string {
	return constants.TableBalanceAccounts
}

// LedgerOperationModel records applied idempotency keys.
type LedgerOperationModel struct {
	IdempotencyKey string `gorm:"primaryKey;size:128"`
	Kind           string `gorm:"size:16;not null"`
	Owner          string `gorm:"size:64;not null;index"`
	Asset          string `gorm:"size:10;not null"`
	Amount         int64  `gorm:"not null"`
	Reference      string `gorm:"size:128"`
	CreatedAt      time.Time
}

func (LedgerOperationModel) TableName() string {
	return constants.TableLedgerOperations
}

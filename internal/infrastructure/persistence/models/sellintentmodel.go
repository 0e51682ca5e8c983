package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/shared/constants"
)

// Amounts are stored as decimal strings so no driver rounds them.
type SellIntentModel struct {
	ID                  string          `gorm:"primaryKey;size:32"`
	Owner               string          `gorm:"size:64;not null;index"`
	Asset               string          `gorm:"size:10;not null;index:idx_sell_intent_match,priority:3"`
	Network             string          `gorm:"size:16;not null;index:idx_sell_intent_match,priority:1"`
	DepositAddress      string          `gorm:"size:128;not null;index:idx_sell_intent_match,priority:2"`
	DepositMemo         *string         `gorm:"size:128"`
	QuotedSellAmount    decimal.Decimal `gorm:"type:varchar(64);not null"`
	QuotedReceiveAmount decimal.Decimal `gorm:"type:varchar(64);not null"`
	QuotedRate          decimal.Decimal `gorm:"type:varchar(64);not null"`
	ReceiveCurrency     string          `gorm:"size:10;not null"`
	Status              string          `gorm:"size:20;not null;index:idx_sell_intent_match,priority:4;index:idx_sell_intent_expiry,priority:1"`
	ExpiresAt           time.Time       `gorm:"not null;index:idx_sell_intent_expiry,priority:2"`
	BankCode            *string         `gorm:"size:8"`
	AccountNumber       *string         `gorm:"size:16"`
	AccountName         *string         `gorm:"size:128"`
	Version             int             `gorm:"not null;default:1"`
	CreatedAt           time.Time       `gorm:"index:idx_sell_intent_match,priority:5"`
	UpdatedAt           time.Time
}

func (SellIntentModel) TableName() string {
	return constants.TableSellIntents
}

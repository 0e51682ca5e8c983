package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/orris-inc/offramp/internal/shared/constants"
)

type SettlementRecordModel struct {
	ID                   string          `gorm:"primaryKey;size:32"`
	IntentID             string          `gorm:"size:32;not null;uniqueIndex:uk_settlement_intent"`
	Owner                string          `gorm:"size:64;not null;index"`
	Asset                string          `gorm:"size:10;not null"`
	Network              string          `gorm:"size:16;not null;uniqueIndex:uk_settlement_observed_tx,priority:1"`
	ReceiveCurrency      string          `gorm:"size:10;not null"`
	ObservedAmount       decimal.Decimal `gorm:"type:varchar(64);not null"`
	ObservedTxHash       string          `gorm:"size:128;not null;uniqueIndex:uk_settlement_observed_tx,priority:2"`
	ProviderTxID         string          `gorm:"size:128"`
	ObservedAt           time.Time
	QuotedSellAmount     decimal.Decimal `gorm:"type:varchar(64);not null"`
	QuotedReceiveAmount  decimal.Decimal `gorm:"type:varchar(64);not null"`
	ActualReceiveAmount  decimal.Decimal `gorm:"type:varchar(64);not null"`
	ActualRate           decimal.Decimal `gorm:"type:varchar(64);not null"`
	Anomaly              bool            `gorm:"not null;default:false"`
	CreditedAt           time.Time       `gorm:"not null"`
	BankCode             *string         `gorm:"size:8"`
	AccountNumber        *string         `gorm:"size:16"`
	AccountName          *string         `gorm:"size:128"`
	State                string          `gorm:"size:24;not null;index:idx_settlement_state_updated,priority:1"`
	SwapIdempotencyKey   string          `gorm:"size:64"`
	SwapAttempts         int             `gorm:"not null;default:0"`
	SwapResult           datatypes.JSON
	PayoutIdempotencyKey string `gorm:"size:64;index"`
	PayoutReference      string `gorm:"size:128;index"`
	PayoutAttempts       int    `gorm:"not null;default:0"`
	PayoutResult         datatypes.JSON
	LastError            string `gorm:"type:text"`
	Version              int    `gorm:"not null;default:1"`
	CreatedAt            time.Time
	UpdatedAt            time.Time `gorm:"index:idx_settlement_state_updated,priority:2"`
}

func (SettlementRecordModel) TableName() string {
	return constants.TableSettlementRecords
}

type UnmatchedDepositModel struct {
	ID           string          `gorm:"primaryKey;size:32"`
	Provider     string          `gorm:"size:32;not null"`
	Asset        string          `gorm:"size:10;not null"`
	Network      string          `gorm:"size:16;not null;uniqueIndex:uk_unmatched_delivery,priority:1"`
	Address      string          `gorm:"size:128;not null;uniqueIndex:uk_unmatched_delivery,priority:3"`
	Memo         string          `gorm:"size:128"`
	Amount       decimal.Decimal `gorm:"type:varchar(64);not null"`
	TxHash       string          `gorm:"size:128;not null;uniqueIndex:uk_unmatched_delivery,priority:2"`
	ProviderTxID string          `gorm:"size:128"`
	Reason       string          `gorm:"size:32;not null;index"`
	IntentID     *string         `gorm:"size:32"`
	Detail       string          `gorm:"type:text"`
	RawPayload   datatypes.JSON
	CreatedAt    time.Time `gorm:"index"`
}

func (UnmatchedDepositModel) TableName() string {
	return constants.TableUnmatchedDeposits
}

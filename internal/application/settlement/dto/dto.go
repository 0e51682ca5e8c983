package dto

import (
	"time"

	"github.com/orris-inc/offramp/internal/domain/intent"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

type PayoutDestinationDTO struct {
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type IntentDTO struct {
	ID                  string                `json:"id"`
	Owner               string                `json:"owner"`
	Asset               string                `json:"asset"`
	Network             string                `json:"network"`
	DepositAddress      string                `json:"deposit_address"`
	DepositMemo         *string               `json:"deposit_memo,omitempty"`
	QuotedSellAmount    string                `json:"quoted_sell_amount"`
	QuotedReceiveAmount string                `json:"quoted_receive_amount"`
	QuotedRate          string                `json:"quoted_rate"`
	ReceiveCurrency     string                `json:"receive_currency"`
	Status              string                `json:"status"`
	ExpiresAt           time.Time             `json:"expires_at"`
	PayoutDestination   *PayoutDestinationDTO `json:"payout_destination,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

type ProviderResultDTO struct {
	Reference      string    `json:"reference,omitempty"`
	Status         string    `json:"status"`
	ProviderStatus string    `json:"provider_status,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type SettlementDTO struct {
	ID                  string             `json:"id"`
	IntentID            string             `json:"intent_id"`
	Owner               string             `json:"owner"`
	Asset               string             `json:"asset"`
	Network             string             `json:"network"`
	ReceiveCurrency     string             `json:"receive_currency"`
	ObservedAmount      string             `json:"observed_amount"`
	ObservedTxHash      string             `json:"observed_tx_hash"`
	QuotedSellAmount    string             `json:"quoted_sell_amount"`
	QuotedReceiveAmount string             `json:"quoted_receive_amount"`
	ActualReceiveAmount string             `json:"actual_receive_amount"`
	ActualRate          string             `json:"actual_rate"`
	ReceiveDelta        string             `json:"receive_delta"`
	Anomaly             bool               `json:"anomaly"`
	State               string             `json:"state"`
	NeedsOperator       bool               `json:"needs_operator"`
	SwapAttempts        int                `json:"swap_attempts"`
	SwapResult          *ProviderResultDTO `json:"swap_result,omitempty"`
	PayoutAttempts      int                `json:"payout_attempts"`
	PayoutResult        *ProviderResultDTO `json:"payout_result,omitempty"`
	PayoutAccountNumber string             `json:"payout_account_number,omitempty"`
	LastError           string             `json:"last_error,omitempty"`
	CreditedAt          time.Time          `json:"credited_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type UnmatchedDepositDTO struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	Asset        string    `json:"asset"`
	Network      string    `json:"network"`
	Address      string    `json:"address"`
	Memo         string    `json:"memo,omitempty"`
	Amount       string    `json:"amount"`
	TxHash       string    `json:"tx_hash"`
	ProviderTxID string    `json:"provider_tx_id,omitempty"`
	Reason       string    `json:"reason"`
	IntentID     *string   `json:"intent_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToIntentDTO(si *intent.SellIntent) *IntentDTO {
	if si == nil {
		return nil
	}
	d := &IntentDTO{
		ID:                  si.ID(),
		Owner:               si.Owner(),
		Asset:               si.Asset().String(),
		Network:             si.Network().String(),
		DepositAddress:      si.DepositAddress(),
		DepositMemo:         si.DepositMemo(),
		QuotedSellAmount:    si.QuotedSellAmount().String(),
		QuotedReceiveAmount: si.QuotedReceiveAmount().String(),
		QuotedRate:          si.QuotedRate().String(),
		ReceiveCurrency:     si.ReceiveCurrency().String(),
		Status:              si.Status().String(),
		ExpiresAt:           si.ExpiresAt(),
		CreatedAt:           si.CreatedAt(),
		UpdatedAt:           si.UpdatedAt(),
	}
	if dest := si.PayoutDestination(); dest != nil {
		d.PayoutDestination = &PayoutDestinationDTO{
			BankCode:      dest.BankCode(),
			AccountNumber: utils.MaskAccountNumber(dest.AccountNumber()),
			AccountName:   dest.AccountName(),
		}
	}
	return d
}

func toProviderResultDTO(r *vo.ProviderResult) *ProviderResultDTO {
	if r == nil {
		return nil
	}
	return &ProviderResultDTO{
		Reference:      r.Reference,
		Status:         string(r.Status),
		ProviderStatus: r.ProviderStatus,
		ErrorCode:      r.ErrorCode,
		ErrorMessage:   r.ErrorMessage,
		IdempotencyKey: r.IdempotencyKey,
		RecordedAt:     r.RecordedAt,
	}
}

func ToSettlementDTO(rec *settlement.Record) *SettlementDTO {
	if rec == nil {
		return nil
	}
	d := &SettlementDTO{
		ID:                  rec.ID(),
		IntentID:            rec.IntentID(),
		Owner:               rec.Owner(),
		Asset:               rec.Asset().String(),
		Network:             rec.Network().String(),
		ReceiveCurrency:     rec.ReceiveCurrency().String(),
		ObservedAmount:      rec.ObservedAmount().String(),
		ObservedTxHash:      rec.ObservedTxHash(),
		QuotedSellAmount:    rec.QuotedSellAmount().String(),
		QuotedReceiveAmount: rec.QuotedReceiveAmount().String(),
		ActualReceiveAmount: rec.PayoutAmount().String(),
		ActualRate:          rec.ActualRate().String(),
		ReceiveDelta:        rec.ReceiveDelta().String(),
		Anomaly:             rec.Anomaly(),
		State:               rec.State().String(),
		NeedsOperator:       rec.State().NeedsOperator(),
		SwapAttempts:        rec.SwapAttempts(),
		SwapResult:          toProviderResultDTO(rec.SwapResult()),
		PayoutAttempts:      rec.PayoutAttempts(),
		PayoutResult:        toProviderResultDTO(rec.PayoutResult()),
		LastError:           rec.LastError(),
		CreditedAt:          rec.CreditedAt(),
		UpdatedAt:           rec.UpdatedAt(),
	}
	if dest := rec.Destination(); dest != nil {
		d.PayoutAccountNumber = utils.MaskAccountNumber(dest.AccountNumber())
	}
	return d
}

func ToUnmatchedDepositDTO(u *settlement.UnmatchedDeposit) *UnmatchedDepositDTO {
	if u == nil {
		return nil
	}
	return &UnmatchedDepositDTO{
		ID:           u.ID,
		Provider:     u.Provider,
		Asset:        u.Asset.String(),
		Network:      u.Network.String(),
		Address:      u.Address,
		Memo:         u.Memo,
		Amount:       u.Amount.String(),
		TxHash:       u.TxHash,
		ProviderTxID: u.ProviderTxID,
		Reason:       string(u.Reason),
		IntentID:     u.IntentID,
		Detail:       u.Detail,
		CreatedAt:    u.CreatedAt,
	}
}

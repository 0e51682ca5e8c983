package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/offramp/internal/domain/settlement"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
)

func SettlementRecordToModel(r *settlement.Record) (*models.SettlementRecordModel, error) {
	swapResult, err := providerResultToJSON(r.SwapResult())
	if err != nil {
		return nil, err
	}
	payoutResult, err := providerResultToJSON(r.PayoutResult())
	if err != nil {
		return nil, err
	}

	model := &models.SettlementRecordModel{
		ID:                   r.ID(),
		IntentID:             r.IntentID(),
		Owner:                r.Owner(),
		Asset:                r.Asset().String(),
		Network:              r.Network().String(),
		ReceiveCurrency:      r.ReceiveCurrency().String(),
		ObservedAmount:       r.ObservedAmount(),
		ObservedTxHash:       r.ObservedTxHash(),
		ProviderTxID:         r.ProviderTxID(),
		ObservedAt:           r.ObservedAt(),
		QuotedSellAmount:     r.QuotedSellAmount(),
		QuotedReceiveAmount:  r.QuotedReceiveAmount(),
		ActualReceiveAmount:  r.ActualReceiveAmount(),
		ActualRate:           r.ActualRate(),
		Anomaly:              r.Anomaly(),
		CreditedAt:           r.CreditedAt(),
		State:                r.State().String(),
		SwapIdempotencyKey:   r.SwapIdempotencyKey(),
		SwapAttempts:         r.SwapAttempts(),
		SwapResult:           swapResult,
		PayoutIdempotencyKey: r.PayoutIdempotencyKey(),
		PayoutAttempts:       r.PayoutAttempts(),
		PayoutResult:         payoutResult,
		LastError:            r.LastError(),
		Version:              r.Version(),
		CreatedAt:            r.CreatedAt(),
		UpdatedAt:            r.UpdatedAt(),
	}
	if res := r.PayoutResult(); res != nil {
		model.PayoutReference = res.Reference
	}
	model.BankCode, model.AccountNumber, model.AccountName = destinationColumns(r.Destination())
	return model, nil
}

func SettlementRecordToDomain(model *models.SettlementRecordModel) (*settlement.Record, error) {
	state := vo.SettlementState(model.State)
	if !state.IsValid() {
		return nil, fmt.Errorf("invalid settlement state: %s", model.State)
	}
	swapResult, err := providerResultFromJSON(model.SwapResult)
	if err != nil {
		return nil, fmt.Errorf("settlement %s swap result: %w", model.ID, err)
	}
	payoutResult, err := providerResultFromJSON(model.PayoutResult)
	if err != nil {
		return nil, fmt.Errorf("settlement %s payout result: %w", model.ID, err)
	}
	dest, err := destinationFromColumns(model.BankCode, model.AccountNumber, model.AccountName)
	if err != nil {
		return nil, fmt.Errorf("settlement %s: %w", model.ID, err)
	}

	return settlement.ReconstructRecord(settlement.RecordSnapshot{
		ID:                   model.ID,
		IntentID:             model.IntentID,
		Owner:                model.Owner,
		Asset:                asset.Code(model.Asset),
		Network:              asset.Network(model.Network),
		ReceiveCurrency:      asset.Code(model.ReceiveCurrency),
		ObservedAmount:       model.ObservedAmount,
		ObservedTxHash:       model.ObservedTxHash,
		ProviderTxID:         model.ProviderTxID,
		ObservedAt:           model.ObservedAt,
		QuotedSellAmount:     model.QuotedSellAmount,
		QuotedReceiveAmount:  model.QuotedReceiveAmount,
		ActualReceiveAmount:  model.ActualReceiveAmount,
		ActualRate:           model.ActualRate,
		Anomaly:              model.Anomaly,
		CreditedAt:           model.CreditedAt,
		Destination:          dest,
		State:                state,
		SwapIdempotencyKey:   model.SwapIdempotencyKey,
		SwapAttempts:         model.SwapAttempts,
		SwapResult:           swapResult,
		PayoutIdempotencyKey: model.PayoutIdempotencyKey,
		PayoutAttempts:       model.PayoutAttempts,
		PayoutResult:         payoutResult,
		LastError:            model.LastError,
		Version:              model.Version,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}), nil
}

func SettlementRecordsToDomain(list []models.SettlementRecordModel) ([]*settlement.Record, error) {
	out := make([]*settlement.Record, 0, len(list))
	for i := range list {
		r, err := SettlementRecordToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func UnmatchedDepositToModel(d *settlement.UnmatchedDeposit) *models.UnmatchedDepositModel {
	return &models.UnmatchedDepositModel{
		ID:           d.ID,
		Provider:     d.Provider,
		Asset:        d.Asset.String(),
		Network:      d.Network.String(),
		Address:      d.Address,
		Memo:         d.Memo,
		Amount:       d.Amount,
		TxHash:       d.TxHash,
		ProviderTxID: d.ProviderTxID,
		Reason:       string(d.Reason),
		IntentID:     d.IntentID,
		Detail:       d.Detail,
		RawPayload:   rawJSON(d.RawPayload),
		CreatedAt:    d.CreatedAt,
	}
}

func UnmatchedDepositToDomain(model *models.UnmatchedDepositModel) *settlement.UnmatchedDeposit {
	return &settlement.UnmatchedDeposit{
		ID:           model.ID,
		Provider:     model.Provider,
		Asset:        asset.Code(model.Asset),
		Network:      asset.Network(model.Network),
		Address:      model.Address,
		Memo:         model.Memo,
		Amount:       model.Amount,
		TxHash:       model.TxHash,
		ProviderTxID: model.ProviderTxID,
		Reason:       settlement.UnmatchedReason(model.Reason),
		IntentID:     model.IntentID,
		Detail:       model.Detail,
		RawPayload:   []byte(model.RawPayload),
		CreatedAt:    model.CreatedAt,
	}
}

func providerResultToJSON(r *vo.ProviderResult) (datatypes.JSON, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider result: %w", err)
	}
	return datatypes.JSON(b), nil
}

func providerResultFromJSON(j datatypes.JSON) (*vo.ProviderResult, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	var r vo.ProviderResult
	if err := json.Unmarshal(j, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// rawJSON keeps a provider payload only when it is valid JSON.
func rawJSON(b []byte) datatypes.JSON {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return datatypes.JSON(b)
}

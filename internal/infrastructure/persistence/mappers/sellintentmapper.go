package mappers

import (
	"fmt"

	"github.com/orris-inc/offramp/internal/domain/intent"
	vo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
)

func SellIntentToModel(si *intent.SellIntent) *models.SellIntentModel {
	model := &models.SellIntentModel{
		ID:                  si.ID(),
		Owner:               si.Owner(),
		Asset:               si.Asset().String(),
		Network:             si.Network().String(),
		DepositAddress:      si.DepositAddress(),
		DepositMemo:         si.DepositMemo(),
		QuotedSellAmount:    si.QuotedSellAmount(),
		QuotedReceiveAmount: si.QuotedReceiveAmount(),
		QuotedRate:          si.QuotedRate(),
		ReceiveCurrency:     si.ReceiveCurrency().String(),
		Status:              si.Status().String(),
		ExpiresAt:           si.ExpiresAt(),
		Version:             si.Version(),
		CreatedAt:           si.CreatedAt(),
		UpdatedAt:           si.UpdatedAt(),
	}
	model.BankCode, model.AccountNumber, model.AccountName = destinationColumns(si.PayoutDestination())
	return model
}

func SellIntentToDomain(model *models.SellIntentModel) (*intent.SellIntent, error) {
	status := vo.IntentStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid intent status: %s", model.Status)
	}

	dest, err := destinationFromColumns(model.BankCode, model.AccountNumber, model.AccountName)
	if err != nil {
		return nil, fmt.Errorf("intent %s: %w", model.ID, err)
	}

	return intent.ReconstructSellIntent(
		model.ID,
		model.Owner,
		asset.Code(model.Asset),
		asset.Network(model.Network),
		model.DepositAddress,
		model.DepositMemo,
		intent.Quote{
			SellAmount:    model.QuotedSellAmount,
			ReceiveAmount: model.QuotedReceiveAmount,
			Rate:          model.QuotedRate,
		},
		asset.Code(model.ReceiveCurrency),
		status,
		model.ExpiresAt,
		dest,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	), nil
}

func SellIntentsToDomain(list []models.SellIntentModel) ([]*intent.SellIntent, error) {
	out := make([]*intent.SellIntent, 0, len(list))
	for i := range list {
		si, err := SellIntentToDomain(&list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, nil
}

func destinationColumns(d *vo.PayoutDestination) (bankCode, accountNumber, accountName *string) {
	if d == nil {
		return nil, nil, nil
	}
	b, n, a := d.BankCode(), d.AccountNumber(), d.AccountName()
	return &b, &n, &a
}

func destinationFromColumns(bankCode, accountNumber, accountName *string) (*vo.PayoutDestination, error) {
	if bankCode == nil || accountNumber == nil {
		return nil, nil
	}
	name := ""
	if accountName != nil {
		name = *accountName
	}
	d, err := vo.NewPayoutDestination(*bankCode, *accountNumber, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

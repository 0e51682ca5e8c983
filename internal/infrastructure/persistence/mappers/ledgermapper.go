package mappers

import (
	"github.com/orris-inc/offramp/internal/domain/ledger"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
)

func BalanceAccountToDomain(model *models.BalanceAccountModel) *ledger.Account {
	return &ledger.Account{
		Owner:     model.Owner,
		Asset:     asset.Code(model.Asset),
		Available: model.Available,
		Pending:   model.Pending,
		Settled:   model.Settled,
		UpdatedAt: model.UpdatedAt,
	}
}

func LedgerOperationToModel(op ledger.Operation) *models.LedgerOperationModel {
	return &models.LedgerOperationModel{
		IdempotencyKey: op.IdempotencyKey,
		Kind:           string(op.Kind),
		Owner:          op.Owner,
		Asset:          op.Asset.String(),
		Amount:         op.Amount,
		Reference:      op.Reference,
	}
}

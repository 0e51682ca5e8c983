package migration

import (
	"github.com/orris-inc/offramp/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists every table the service owns.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SellIntentModel{},
		&models.SettlementRecordModel{},
		&models.UnmatchedDepositModel{},
		&models.BalanceAccountModel{},
		&models.LedgerOperationModel{},
	}
}

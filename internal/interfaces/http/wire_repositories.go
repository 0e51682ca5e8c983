package http

import (
	"gorm.io/gorm"

	"github.com/orris-inc/offramp/internal/domain/intent"
	"github.com/orris-inc/offramp/internal/domain/ledger"
	"github.com/orris-inc/offramp/internal/domain/settlement"
	"github.com/orris-inc/offramp/internal/infrastructure/repository"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// repositories holds all repository instances used by the application.
// Types match the return types of the repository constructors.
type repositories struct {
	intentRepo    intent.Repository
	recordRepo    settlement.Repository
	unmatchedRepo settlement.UnmatchedDepositRepository
	balanceRepo   ledger.Repository
}

// newRepositories creates all repository instances from the database connection.
func newRepositories(db *gorm.DB, clock biztime.Clock, log logger.Interface) *repositories {
	return &repositories{
		intentRepo:    repository.NewSellIntentRepository(db, clock, log),
		recordRepo:    repository.NewSettlementRepository(db, log),
		unmatchedRepo: repository.NewUnmatchedDepositRepository(db, log),
		balanceRepo:   repository.NewBalanceRepository(db, clock, log),
	}
}

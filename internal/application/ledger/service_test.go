package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/domain/ledger"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Apply(ctx context.Context, op ledger.Operation) (*ledger.Account, bool, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ledger.Account), args.Bool(1), args.Error(2)
}

func (m *MockLedgerRepository) GetAccount(ctx context.Context, owner string, assetCode asset.Code) (*ledger.Account, error) {
	args := m.Called(ctx, owner, assetCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func TestCreditConvertsToMinorUnits(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := NewBalanceLedger(repo, logger.NewNop())

	repo.On("Apply", mock.Anything, ledger.Operation{
		Kind:           ledger.OperationCredit,
		Owner:          "user_1",
		Asset:          asset.NGN,
		Amount:         14_970_000,
		IdempotencyKey: "credit:si_1",
	}).Return(&ledger.Account{Owner: "user_1", Asset: asset.NGN, Available: 14_970_000}, true, nil)

	bal, err := l.Credit(context.Background(), "user_1", asset.NGN, decimal.RequireFromString("149700"), "credit:si_1")
	require.NoError(t, err)
	assert.Equal(t, "149700", bal.Available.String())
	repo.AssertExpectations(t)
}

func TestApplyRejectsInvalidInput(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := NewBalanceLedger(repo, logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		name   string
		owner  string
		asset  asset.Code
		amount string
	}{
		{"zero amount", "user_1", asset.NGN, "0"},
		{"negative amount", "user_1", asset.NGN, "-5"},
		{"unsupported asset", "user_1", asset.Code("DOGE"), "1"},
		{"missing owner", "", asset.NGN, "1"},
		{"sub-kobo precision", "user_1", asset.NGN, "1.001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Credit(ctx, tt.owner, tt.asset, decimal.RequireFromString(tt.amount), "")
			assert.True(t, apperrors.IsValidationError(err), "got %v", err)
		})
	}
	repo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestDebitInsufficientFunds(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := NewBalanceLedger(repo, logger.NewNop())

	repo.On("Apply", mock.Anything, mock.MatchedBy(func(op ledger.Operation) bool {
		return op.Kind == ledger.OperationDebit
	})).Return(nil, false, ledger.ErrInsufficientFunds)

	_, err := l.Debit(context.Background(), "user_1", asset.USDT, decimal.NewFromInt(5), "")
	assert.True(t, apperrors.IsInsufficientFundsError(err))
}

func TestReplayReturnsCurrentBalance(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := NewBalanceLedger(repo, logger.NewNop())

	repo.On("Apply", mock.Anything, mock.Anything).
		Return(&ledger.Account{Owner: "user_1", Asset: asset.NGN, Available: 100, Pending: 500}, false, nil)

	bal, err := l.Reserve(context.Background(), "user_1", asset.NGN, decimal.NewFromInt(5), "payout-reserve:si_1")
	require.NoError(t, err)
	assert.Equal(t, "1", bal.Available.String())
	assert.Equal(t, "5", bal.Pending.String())
}

func TestStoreErrorIsInternal(t *testing.T) {
	repo := new(MockLedgerRepository)
	l := NewBalanceLedger(repo, logger.NewNop())
	repo.On("Apply", mock.Anything, mock.Anything).Return(nil, false, errors.New("db down"))

	_, err := l.Commit(context.Background(), "user_1", asset.NGN, decimal.NewFromInt(5), "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeInternal, appErr.Type)
}

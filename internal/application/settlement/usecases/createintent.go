package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/application/settlement/pricing"
	"github.com/orris-inc/offramp/internal/domain/intent"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// DefaultIntentTTL is how long a quote stays open for a deposit.
const DefaultIntentTTL = 30 * time.Minute

type CreateIntentCommand struct {
	Owner           string
	Asset           string
	Network         string
	SellAmount      decimal.Decimal
	ReceiveCurrency string
	DepositAddress  string
	DepositMemo     string
	BankCode        string
	AccountNumber   string
	AccountName     string
}

type CreateIntentUseCase struct {
	intents intent.Repository
	quoter  pricing.SellQuoter
	ttl     time.Duration
	clock   biztime.Clock
	logger  logger.Interface
}

func NewCreateIntentUseCase(intents intent.Repository, quoter pricing.SellQuoter, ttl time.Duration, clock biztime.Clock, log logger.Interface) *CreateIntentUseCase {
	if ttl <= 0 {
		ttl = DefaultIntentTTL
	}
	return &CreateIntentUseCase{
		intents: intents,
		quoter:  quoter,
		ttl:     ttl,
		clock:   clock,
		logger:  log.Named("create_intent"),
	}
}

func (uc *CreateIntentUseCase) Execute(ctx context.Context, cmd CreateIntentCommand) (*dto.IntentDTO, error) {
	assetCode, err := asset.ParseCrypto(cmd.Asset)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid asset", err.Error())
	}
	network, err := asset.ParseNetwork(cmd.Network)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid network", err.Error())
	}
	receive := cmd.ReceiveCurrency
	if receive == "" {
		receive = asset.NGN.String()
	}
	currency, err := asset.ParseReceiveCurrency(receive)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid receive currency", err.Error())
	}
	if !cmd.SellAmount.IsPositive() {
		return nil, apperrors.NewValidationError("sell amount must be positive")
	}
	if _, err := assetCode.ToMinorUnits(cmd.SellAmount); err != nil {
		return nil, apperrors.NewValidationError("invalid sell amount", err.Error())
	}

	var dest intentvo.PayoutDestination
	if cmd.AccountNumber != "" || cmd.BankCode != "" {
		dest, err = intentvo.NewPayoutDestination(cmd.BankCode, cmd.AccountNumber, cmd.AccountName)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid payout destination", err.Error())
		}
	}

	quote, err := uc.quoter.GetSellQuote(ctx, assetCode, currency, cmd.SellAmount)
	if err != nil {
		if errors.Is(err, pricing.ErrPriceUnavailable) {
			return nil, apperrors.NewPriceUnavailableError("cannot quote sale right now", assetCode.String())
		}
		if errors.Is(err, pricing.ErrAmountTooSmall) {
			return nil, apperrors.NewValidationError("sell amount does not cover fees")
		}
		uc.logger.Errorw("failed to quote sell intent", "asset", assetCode, "currency", currency, "error", err)
		return nil, apperrors.NewInternalError("failed to quote sell intent")
	}

	si, err := intent.NewSellIntent(intent.NewIntentParams{
		Owner:           cmd.Owner,
		Asset:           assetCode,
		Network:         network,
		DepositAddress:  cmd.DepositAddress,
		DepositMemo:     cmd.DepositMemo,
		ReceiveCurrency: currency,
		Quote: intent.Quote{
			SellAmount:    quote.SellAmount,
			ReceiveAmount: quote.ReceiveAmount,
			Rate:          quote.Rate,
		},
		Destination: dest,
	}, uc.clock.Now(), uc.ttl)
	if err != nil {
		if errors.Is(err, intent.ErrInvalidQuote) {
			return nil, apperrors.NewValidationError("sale amount too small to quote", err.Error())
		}
		return nil, apperrors.NewValidationError("invalid sell intent", err.Error())
	}

	if err := uc.intents.Create(ctx, si); err != nil {
		uc.logger.Errorw("failed to create sell intent", "owner", cmd.Owner, "error", err)
		return nil, apperrors.NewInternalError("failed to create sell intent")
	}

	uc.logger.Infow("sell intent created",
		"intent_id", si.ID(),
		"owner", si.Owner(),
		"asset", si.Asset(),
		"network", si.Network(),
		"sell_amount", si.QuotedSellAmount().String(),
		"receive_amount", si.QuotedReceiveAmount().String(),
		"currency", si.ReceiveCurrency(),
		"expires_at", si.ExpiresAt(),
	)
	return dto.ToIntentDTO(si), nil
}

package settlement

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/application/settlement/dto"
	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/authorization"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

var _ = dto.IntentDTO{} // referenced by swagger annotations

func init() {
	utils.RegisterValidation("crypto_asset", func(s string) error {
		_, err := asset.ParseCrypto(s)
		return err
	})
	utils.RegisterValidation("network", func(s string) error {
		_, err := asset.ParseNetwork(s)
		return err
	})
	utils.RegisterValidation("receive_currency", func(s string) error {
		_, err := asset.ParseReceiveCurrency(s)
		return err
	})
}

type IntentHandler struct {
	createIntentUC createIntentUseCase
	getIntentUC    getIntentUseCase
	cancelIntentUC cancelIntentUseCase
	setDestUC      setPayoutDestinationUseCase
	logger         logger.Interface
}

func NewIntentHandler(
	createIntentUC createIntentUseCase,
	getIntentUC getIntentUseCase,
	cancelIntentUC cancelIntentUseCase,
	setDestUC setPayoutDestinationUseCase,
	logger logger.Interface,
) *IntentHandler {
	return &IntentHandler{
		createIntentUC: createIntentUC,
		getIntentUC:    getIntentUC,
		cancelIntentUC: cancelIntentUC,
		setDestUC:      setDestUC,
		logger:         logger,
	}
}

type PayoutDestinationRequest struct {
	BankCode      string `json:"bank_code" validate:"required,max=16"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=20"`
	AccountName   string `json:"account_name" validate:"required,max=128"`
}

type CreateIntentRequest struct {
	Asset             string                    `json:"asset" validate:"required,crypto_asset"`
	Network           string                    `json:"network" validate:"required,network"`
	SellAmount        string                    `json:"sell_amount" validate:"required,positive_decimal"`
	ReceiveCurrency   string                    `json:"receive_currency" validate:"omitempty,receive_currency"`
	DepositAddress    string                    `json:"deposit_address" validate:"required,max=128"`
	DepositMemo       string                    `json:"deposit_memo" validate:"max=64"`
	PayoutDestination *PayoutDestinationRequest `json:"payout_destination"`
}

// CreateIntent godoc
// @Summary Create sell intent
// @Description Quote a crypto-to-fiat sale and reserve the deposit address for it
// @Security Bearer
// @Tags intents
// @Accept json
// @Produce json
// @Param request body CreateIntentRequest true "Intent details"
// @Success 201 {object} utils.APIResponse{data=dto.IntentDTO} "Sell intent created"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 409 {object} utils.APIResponse "Address already has a pending intent"
// @Failure 503 {object} utils.APIResponse "No quote available"
// @Router /intents [post]
func (h *IntentHandler) CreateIntent(c *gin.Context) {
	owner := authorization.Subject(c)

	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, apperrors.NewBadRequestError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.CreateIntentCommand{
		Owner:           owner,
		Asset:           req.Asset,
		Network:         req.Network,
		SellAmount:      decimal.RequireFromString(strings.TrimSpace(req.SellAmount)),
		ReceiveCurrency: req.ReceiveCurrency,
		DepositAddress:  strings.TrimSpace(req.DepositAddress),
		DepositMemo:     strings.TrimSpace(req.DepositMemo),
	}
	if dest := req.PayoutDestination; dest != nil {
		cmd.BankCode = dest.BankCode
		cmd.AccountNumber = dest.AccountNumber
		cmd.AccountName = dest.AccountName
	}

	result, err := h.createIntentUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("failed to create sell intent", "owner", owner, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "sell intent created")
}

// GetIntent godoc
// @Summary Get sell intent
// @Description Get a sell intent with its settlement progress. Admins may read any intent.
// @Security Bearer
// @Tags intents
// @Produce json
// @Param id path string true "Intent ID"
// @Success 200 {object} utils.APIResponse{data=usecases.IntentView}
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 404 {object} utils.APIResponse "Intent not found"
// @Router /intents/{id} [get]
func (h *IntentHandler) GetIntent(c *gin.Context) {
	result, err := h.getIntentUC.Execute(
		c.Request.Context(),
		authorization.Subject(c),
		c.Param("id"),
		authorization.Role(c).IsAdmin(),
	)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// CancelIntent godoc
// @Summary Cancel sell intent
// @Description Cancel a pending sell intent before any deposit is matched to it
// @Security Bearer
// @Tags intents
// @Produce json
// @Param id path string true "Intent ID"
// @Success 200 {object} utils.APIResponse{data=dto.IntentDTO} "Sell intent cancelled"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 404 {object} utils.APIResponse "Intent not found"
// @Failure 409 {object} utils.APIResponse "Intent is no longer pending"
// @Router /intents/{id}/cancel [post]
func (h *IntentHandler) CancelIntent(c *gin.Context) {
	owner := authorization.Subject(c)
	intentID := c.Param("id")

	result, err := h.cancelIntentUC.Execute(c.Request.Context(), owner, intentID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("sell intent cancelled", "intent_id", intentID, "owner", owner)
	utils.SuccessResponse(c, http.StatusOK, "sell intent cancelled", result)
}

// SetPayoutDestination godoc
// @Summary Set payout destination
// @Description Attach or replace the bank account an intent pays out to. A swapped settlement waiting for a destination pays out on the next sweep.
// @Security Bearer
// @Tags intents
// @Accept json
// @Produce json
// @Param id path string true "Intent ID"
// @Param request body PayoutDestinationRequest true "Bank account"
// @Success 200 {object} utils.APIResponse{data=dto.IntentDTO} "Payout destination updated"
// @Failure 400 {object} utils.APIResponse "Invalid bank account"
// @Failure 401 {object} utils.APIResponse "Unauthorized"
// @Failure 404 {object} utils.APIResponse "Intent not found"
// @Failure 409 {object} utils.APIResponse "Payout already requested or intent settled"
// @Router /intents/{id}/payout-destination [put]
func (h *IntentHandler) SetPayoutDestination(c *gin.Context) {
	owner := authorization.Subject(c)
	intentID := c.Param("id")

	var req PayoutDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, apperrors.NewBadRequestError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.setDestUC.Execute(c.Request.Context(), usecases.SetPayoutDestinationCommand{
		Owner:         owner,
		IntentID:      intentID,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		h.logger.Warnw("failed to set payout destination", "intent_id", intentID, "owner", owner, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "payout destination updated", result)
}

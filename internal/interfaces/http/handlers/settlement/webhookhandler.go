package settlement

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/offramp/internal/infrastructure/webhook"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/utils"
)

// WebhookHandler receives signed provider notifications. The raw body is
// read once so the signature covers exactly what is parsed.
type WebhookHandler struct {
	deposits        depositParser
	payouts         payoutCallbackParser
	handleDepositUC handleDepositUseCase
	handlePayoutUC  handlePayoutCallbackUseCase
	clock           biztime.Clock
	logger          logger.Interface
}

func NewWebhookHandler(
	deposits depositParser,
	payouts payoutCallbackParser,
	handleDepositUC handleDepositUseCase,
	handlePayoutUC handlePayoutCallbackUseCase,
	clock biztime.Clock,
	logger logger.Interface,
) *WebhookHandler {
	return &WebhookHandler{
		deposits:        deposits,
		payouts:         payouts,
		handleDepositUC: handleDepositUC,
		handlePayoutUC:  handlePayoutUC,
		clock:           clock,
		logger:          logger,
	}
}

// HandleDeposit godoc
// @Summary Deposit notification
// @Description Receive a signed deposit notification from a custody or payment provider and settle it against the matching intent
// @Tags webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Deposit provider" Enums(custody, nowpayments)
// @Param X-Custody-Signature header string false "Hex HMAC-SHA512 of the raw body (custody)"
// @Param x-nowpayments-sig header string false "Hex HMAC-SHA512 of the raw body (nowpayments)"
// @Success 200 {object} utils.APIResponse{data=usecases.DepositResult} "Delivery processed"
// @Failure 401 {object} utils.APIResponse "Invalid signature"
// @Failure 404 {object} utils.APIResponse "Unknown provider or no matching intent"
// @Failure 413 {object} utils.APIResponse "Body too large"
// @Failure 422 {object} utils.APIResponse "Amount outside tolerance"
// @Router /webhooks/deposits/{provider} [post]
func (h *WebhookHandler) HandleDeposit(c *gin.Context) {
	provider := c.Param("provider")
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	ev, err := h.deposits.Parse(provider, c.Request.Header, body, h.clock.Now())
	if err != nil {
		h.rejectPayload(c, provider, err)
		return
	}

	result, err := h.handleDepositUC.Execute(c.Request.Context(), ev)
	if err != nil {
		h.logger.Warnw("deposit webhook not processed",
			"provider", provider,
			"tx_hash", ev.TxHash,
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// HandlePayoutCallback godoc
// @Summary Payout callback
// @Description Receive the final status of a requested bank payout
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Payout-Signature header string true "Hex HMAC-SHA512 of the raw body"
// @Success 200 {object} utils.APIResponse{data=usecases.PayoutCallbackResult} "Callback processed"
// @Failure 401 {object} utils.APIResponse "Invalid signature"
// @Failure 404 {object} utils.APIResponse "Unknown payout"
// @Router /webhooks/payouts [post]
func (h *WebhookHandler) HandlePayoutCallback(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	cb, err := h.payouts.Parse(c.Request.Header, body, h.clock.Now())
	if err != nil {
		h.rejectPayload(c, "payout", err)
		return
	}

	result, err := h.handlePayoutUC.Execute(c.Request.Context(), cb)
	if err != nil {
		h.logger.Warnw("payout callback not processed",
			"reference", cb.Reference,
			"idempotency_key", cb.IdempotencyKey,
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *WebhookHandler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		utils.ErrorResponseWithError(c, apperrors.NewBadRequestError("failed to read request body"))
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) rejectPayload(c *gin.Context, source string, err error) {
	switch {
	case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrInvalidSignature):
		h.logger.Warnw("webhook signature rejected", "source", source, "client_ip", c.ClientIP(), "error", err)
		utils.ErrorResponseWithError(c, apperrors.NewUnauthorizedError("invalid webhook signature"))
	case errors.Is(err, webhook.ErrUnknownProvider):
		utils.ErrorResponseWithError(c, apperrors.NewNotFoundError("unknown deposit provider", source))
	default:
		h.logger.Warnw("malformed webhook payload", "source", source, "error", err)
		utils.ErrorResponseWithError(c, apperrors.NewValidationError("invalid webhook payload", err.Error()))
	}
}

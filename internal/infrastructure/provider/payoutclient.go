package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	appprovider "github.com/orris-inc/offramp/internal/application/settlement/provider"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type payoutRequestBody struct {
	BankCode      string          `json:"bank_code"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"`
	Narration     string          `json:"narration,omitempty"`
}

type payoutResponseBody struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// PayoutClient implements the payout gateway over the bank transfer API.
type PayoutClient struct {
	api *apiClient
}

var _ appprovider.PayoutGateway = (*PayoutClient)(nil)

func NewPayoutClient(cfg ClientConfig, tokens *TokenProvider, log logger.Interface) *PayoutClient {
	if cfg.ProviderID == "" {
		cfg.ProviderID = "payout"
	}
	return &PayoutClient{api: newAPIClient(cfg, tokens, log.Named("payout_client"))}
}

func (c *PayoutClient) Payout(ctx context.Context, req appprovider.PayoutRequest) (vo.ProviderResult, error) {
	if !req.Amount.Equal(req.Amount.Truncate(req.Currency.Decimals())) {
		return vo.ProviderResult{}, fmt.Errorf("payout amount %s is not whole %s minor units", req.Amount, req.Currency)
	}

	resp, err := c.api.do(ctx, http.MethodPost, "/v1/payouts", req.IdempotencyKey, payoutRequestBody{
		BankCode:      req.Destination.BankCode(),
		AccountNumber: req.Destination.AccountNumber(),
		AccountName:   req.Destination.AccountName(),
		Amount:        req.Amount,
		Currency:      req.Currency.String(),
		Reference:     req.Reference,
		Narration:     req.Narration,
	})
	return c.result(resp, err)
}

// PayoutStatus looks a payout up by provider reference, or by idempotency
// key when no reference was ever returned.
func (c *PayoutClient) PayoutStatus(ctx context.Context, reference, idempotencyKey string) (vo.ProviderResult, error) {
	var path string
	switch {
	case reference != "":
		path = "/v1/payouts/" + url.PathEscape(reference)
	case idempotencyKey != "":
		path = "/v1/payouts?idempotency_key=" + url.QueryEscape(idempotencyKey)
	default:
		return vo.ProviderResult{}, fmt.Errorf("payout lookup needs a reference or an idempotency key")
	}

	resp, err := c.api.do(ctx, http.MethodGet, path, "", nil)
	if err == nil && resp.status == http.StatusNotFound {
		// Unknown to the provider is not a failure of the payout itself.
		err = fmt.Errorf("%w: payout not found", appprovider.ErrOutcomeUnknown)
		return c.api.unknown(resp, err), err
	}
	return c.result(resp, err)
}

func (c *PayoutClient) result(resp *apiResponse, err error) (vo.ProviderResult, error) {
	if err != nil {
		if errors.Is(err, appprovider.ErrOutcomeUnknown) {
			return c.api.unknown(resp, err), err
		}
		return vo.ProviderResult{ProviderID: c.api.cfg.ProviderID, Status: vo.ProviderCallFailed, ErrorCode: "request_error", ErrorMessage: err.Error()}, err
	}
	if resp.status >= 400 {
		return c.api.rejected(resp), nil
	}

	var body payoutResponseBody
	if err := json.Unmarshal(resp.body, &body); err != nil {
		err = fmt.Errorf("%w: undecodable payout response: %v", appprovider.ErrOutcomeUnknown, err)
		return c.api.unknown(resp, err), err
	}
	return vo.ProviderResult{
		ProviderID:     c.api.cfg.ProviderID,
		Reference:      body.Reference,
		Status:         PayoutStatus(body.Status),
		ProviderStatus: body.Status,
		ErrorCode:      body.ErrorCode,
		ErrorMessage:   body.ErrorMessage,
		HTTPStatus:     resp.status,
		RawPayload:     resp.body,
	}, nil
}

// PayoutStatus normalizes a provider payout status. Anything not known to
// be final is pending.
func PayoutStatus(status string) vo.ProviderCallStatus {
	switch strings.ToLower(status) {
	case "successful", "success", "completed", "paid":
		return vo.ProviderCallSucceeded
	case "failed", "reversed", "rejected", "cancelled":
		return vo.ProviderCallFailed
	default:
		return vo.ProviderCallPending
	}
}

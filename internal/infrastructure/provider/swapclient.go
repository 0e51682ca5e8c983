package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	appprovider "github.com/orris-inc/offramp/internal/application/settlement/provider"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

type swapRequestBody struct {
	SourceAsset    string          `json:"source_asset"`
	TargetCurrency string          `json:"target_currency"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      string          `json:"reference"`
}

type swapResponseBody struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	ErrorCode    string          `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

// SwapClient implements the swap gateway over the provider's REST API.
type SwapClient struct {
	api *apiClient
}

var _ appprovider.SwapGateway = (*SwapClient)(nil)

func NewSwapClient(cfg ClientConfig, tokens *TokenProvider, log logger.Interface) *SwapClient {
	if cfg.ProviderID == "" {
		cfg.ProviderID = "swap"
	}
	return &SwapClient{api: newAPIClient(cfg, tokens, log.Named("swap_client"))}
}

func (c *SwapClient) Swap(ctx context.Context, req appprovider.SwapRequest) (vo.ProviderResult, error) {
	resp, err := c.api.do(ctx, http.MethodPost, "/v1/swaps", req.IdempotencyKey, swapRequestBody{
		SourceAsset:    req.SourceAsset.String(),
		TargetCurrency: req.TargetCurrency.String(),
		Amount:         req.Amount,
		Reference:      req.Reference,
	})
	if err != nil {
		if errors.Is(err, appprovider.ErrOutcomeUnknown) {
			return c.api.unknown(resp, err), err
		}
		return vo.ProviderResult{ProviderID: c.api.cfg.ProviderID, Status: vo.ProviderCallFailed, ErrorCode: "request_error", ErrorMessage: err.Error()}, err
	}
	if resp.status >= 400 {
		return c.api.rejected(resp), nil
	}

	var body swapResponseBody
	if err := json.Unmarshal(resp.body, &body); err != nil {
		err = fmt.Errorf("%w: undecodable swap response: %v", appprovider.ErrOutcomeUnknown, err)
		return c.api.unknown(resp, err), err
	}

	result := vo.ProviderResult{
		ProviderID:     c.api.cfg.ProviderID,
		Reference:      body.ID,
		ProviderStatus: body.Status,
		ErrorCode:      body.ErrorCode,
		ErrorMessage:   body.ErrorMessage,
		HTTPStatus:     resp.status,
		RawPayload:     resp.body,
	}
	switch strings.ToLower(body.Status) {
	case "completed", "successful", "success":
		result.Status = vo.ProviderCallSucceeded
	case "failed", "rejected", "cancelled":
		result.Status = vo.ProviderCallFailed
	default:
		result.Status = vo.ProviderCallPending
	}
	return result, nil
}

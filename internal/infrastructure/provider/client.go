// Package provider contains the HTTP clients for the swap and payout
// providers. Each call is a single attempt; retries belong to the settlement
// flow, which reuses idempotency keys.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appprovider "github.com/orris-inc/offramp/internal/application/settlement/provider"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

const maxResponseSize = 256 << 10

// ClientConfig configures one provider API.
type ClientConfig struct {
	ProviderID string
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

// apiClient carries the transport shared by the swap and payout clients.
type apiClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	tokens     *TokenProvider
	limiter    *rate.Limiter
	logger     logger.Interface
}

func newAPIClient(cfg ClientConfig, tokens *TokenProvider, log logger.Interface) *apiClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &apiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     log,
	}
}

type apiResponse struct {
	status int
	body   []byte
}

// do sends one request. A 401 invalidates the cached token and is retried
// once, since the provider rejected it before doing any work. Transport
// errors, timeouts, 409 and 5xx are reported as ErrOutcomeUnknown.
func (c *apiClient) do(ctx context.Context, method, path, idempotencyKey string, payload any) (*apiResponse, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, path, idempotencyKey, body)
		if err != nil {
			return nil, err
		}
		if resp.status == http.StatusUnauthorized && attempt == 0 && c.tokens != nil {
			c.logger.Warnw("provider rejected access token, refreshing", "provider", c.cfg.ProviderID)
			c.tokens.Invalidate()
			continue
		}
		if resp.status == http.StatusConflict || resp.status >= 500 {
			return resp, fmt.Errorf("%w: %s returned HTTP %d", appprovider.ErrOutcomeUnknown, c.cfg.ProviderID, resp.status)
		}
		return resp, nil
	}
}

func (c *apiClient) send(ctx context.Context, method, path, idempotencyKey string, body []byte) (*apiResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// Nothing was sent.
		return nil, fmt.Errorf("provider rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appprovider.ErrOutcomeUnknown, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", appprovider.ErrOutcomeUnknown, err)
	}
	return &apiResponse{status: resp.StatusCode, body: raw}, nil
}

// errorBody is the error envelope both providers share.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rejected builds the failed result for a definitive 4xx response.
func (c *apiClient) rejected(resp *apiResponse) vo.ProviderResult {
	var e errorBody
	_ = json.Unmarshal(resp.body, &e)
	if e.Code == "" {
		e.Code = fmt.Sprintf("http_%d", resp.status)
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.status)
	}
	return vo.ProviderResult{
		ProviderID:   c.cfg.ProviderID,
		Status:       vo.ProviderCallFailed,
		ErrorCode:    e.Code,
		ErrorMessage: e.Message,
		HTTPStatus:   resp.status,
		RawPayload:   validJSON(resp.body),
	}
}

// unknown builds the result for a call whose effect is not known.
func (c *apiClient) unknown(resp *apiResponse, err error) vo.ProviderResult {
	result := vo.ProviderResult{
		ProviderID:   c.cfg.ProviderID,
		Status:       vo.ProviderCallPending,
		ErrorCode:    "outcome_unknown",
		ErrorMessage: err.Error(),
	}
	if resp != nil {
		result.HTTPStatus = resp.status
		result.RawPayload = validJSON(resp.body)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		result.ErrorCode = "timeout"
	}
	return result
}

func validJSON(b []byte) []byte {
	if json.Valid(b) {
		return b
	}
	return nil
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appprovider "github.com/orris-inc/offramp/internal/application/settlement/provider"
	intentvo "github.com/orris-inc/offramp/internal/domain/intent/valueobjects"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// fakeProvider serves an OAuth2 token endpoint and the provider API.
type fakeProvider struct {
	*httptest.Server
	tokensIssued atomic.Int32
	api          http.HandlerFunc
}

func newFakeProvider(t *testing.T, api http.HandlerFunc) *fakeProvider {
	fp := &fakeProvider{api: api}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := fp.tokensIssued.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"bearer","expires_in":3600}`, n)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { fp.api(w, r) })
	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) tokens() *TokenProvider {
	return NewTokenProvider(fp.URL+"/oauth/token", "client", "secret", nil)
}

func clientConfig(url string) ClientConfig {
	return ClientConfig{BaseURL: url, Timeout: 200 * time.Millisecond, RatePerSec: 100, Burst: 10}
}

func swapRequest() appprovider.SwapRequest {
	return appprovider.SwapRequest{
		SourceAsset:    asset.USDT,
		TargetCurrency: asset.NGN,
		Amount:         decimal.RequireFromString("99.8"),
		IdempotencyKey: "swp_key",
		Reference:      "si_1",
	}
}

func TestSwapClient_Success(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/swaps", r.URL.Path)
		assert.Equal(t, "swp_key", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var body swapRequestBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "USDT", body.SourceAsset)
		assert.True(t, decimal.RequireFromString("99.8").Equal(body.Amount))

		_, _ = w.Write([]byte(`{"id":"swap_123","status":"completed","target_amount":"148702"}`))
	})

	result, err := NewSwapClient(clientConfig(fp.URL), fp.tokens(), logger.NewNop()).Swap(context.Background(), swapRequest())
	require.NoError(t, err)
	assert.Equal(t, vo.ProviderCallSucceeded, result.Status)
	assert.Equal(t, "swap_123", result.Reference)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.NotEmpty(t, result.RawPayload)
}

func TestSwapClient_ResponseClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  vo.ProviderCallStatus
		wantUnknown bool
		wantCode    string
	}{
		{"rejected", http.StatusUnprocessableEntity, `{"code":"insufficient_liquidity","message":"no liquidity"}`, vo.ProviderCallFailed, false, "insufficient_liquidity"},
		{"bad request without envelope", http.StatusBadRequest, `oops`, vo.ProviderCallFailed, false, "http_400"},
		{"server error", http.StatusBadGateway, `{}`, vo.ProviderCallPending, true, "outcome_unknown"},
		{"in flight conflict", http.StatusConflict, `{}`, vo.ProviderCallPending, true, "outcome_unknown"},
		{"failed status", http.StatusOK, `{"id":"s1","status":"failed","error_code":"slippage"}`, vo.ProviderCallFailed, false, "slippage"},
		{"processing status", http.StatusAccepted, `{"id":"s1","status":"processing"}`, vo.ProviderCallPending, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			result, err := NewSwapClient(clientConfig(fp.URL), fp.tokens(), logger.NewNop()).Swap(context.Background(), swapRequest())
			if tt.wantUnknown {
				assert.ErrorIs(t, err, appprovider.ErrOutcomeUnknown)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantCode, result.ErrorCode)
		})
	}
}

func TestSwapClient_TimeoutIsOutcomeUnknown(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	result, err := NewSwapClient(clientConfig(fp.URL), fp.tokens(), logger.NewNop()).Swap(context.Background(), swapRequest())
	assert.ErrorIs(t, err, appprovider.ErrOutcomeUnknown)
	assert.Equal(t, vo.ProviderCallPending, result.Status)
}

func TestClient_RefreshesTokenOnceOn401(t *testing.T) {
	var calls atomic.Int32
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"swap_1","status":"completed"}`))
	})

	result, err := NewSwapClient(clientConfig(fp.URL), fp.tokens(), logger.NewNop()).Swap(context.Background(), swapRequest())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, int32(2), fp.tokensIssued.Load())
}

func TestTokenProvider_CachesUntilInvalidated(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	tokens := fp.tokens()

	a, err := tokens.Token(context.Background())
	require.NoError(t, err)
	b, err := tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), fp.tokensIssued.Load())

	tokens.Invalidate()
	c, err := tokens.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func payoutRequest(t *testing.T, amount string) appprovider.PayoutRequest {
	dest, err := intentvo.NewPayoutDestination("058", "0123456789", "Ada Obi")
	require.NoError(t, err)
	return appprovider.PayoutRequest{
		Destination:    dest,
		Amount:         decimal.RequireFromString(amount),
		Currency:       asset.NGN,
		IdempotencyKey: "pay_key",
		Reference:      "si_1",
	}
}

func TestPayoutClient_Payout(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pay_key", r.Header.Get("Idempotency-Key"))
		var body payoutRequestBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0123456789", body.AccountNumber)
		assert.Equal(t, "NGN", body.Currency)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"reference":"trf_1","status":"processing"}`))
	})
	client := NewPayoutClient(clientConfig(fp.URL), fp.tokens(), logger.NewNop())

	result, err := client.Payout(context.Background(), payoutRequest(t, "148702.5"))
	require.NoError(t, err)
	assert.Equal(t, vo.ProviderCallPending, result.Status)
	assert.Equal(t, "trf_1", result.Reference)

	_, err = client.Payout(context.Background(), payoutRequest(t, "148702.555"))
	assert.Error(t, err)
}

func TestPayoutClient_PayoutStatus(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/payouts/trf_1":
			_, _ = w.Write([]byte(`{"reference":"trf_1","status":"successful"}`))
		case r.URL.Path == "/v1/payouts" && r.URL.Query().Get("idempotency_key") == "pay_key":
			_, _ = w.Write([]byte(`{"reference":"trf_2","status":"reversed","error_message":"account closed"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := NewPayoutClient(clientConfig(fp.URL), fp.tokens(), logger.NewNop())

	result, err := client.PayoutStatus(context.Background(), "trf_1", "pay_key")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	result, err = client.PayoutStatus(context.Background(), "", "pay_key")
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, "account closed", result.ErrorMessage)

	_, err = client.PayoutStatus(context.Background(), "trf_missing", "")
	assert.True(t, errors.Is(err, appprovider.ErrOutcomeUnknown))

	_, err = client.PayoutStatus(context.Background(), "", "")
	assert.Error(t, err)
}

func TestPayoutStatusNormalization(t *testing.T) {
	for in, want := range map[string]vo.ProviderCallStatus{
		"SUCCESSFUL": vo.ProviderCallSucceeded,
		"paid":       vo.ProviderCallSucceeded,
		"reversed":   vo.ProviderCallFailed,
		"queued":     vo.ProviderCallPending,
		"":           vo.ProviderCallPending,
	} {
		assert.Equal(t, want, PayoutStatus(in), in)
	}
}

package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	"github.com/orris-inc/offramp/internal/domain/deposit"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
	"github.com/orris-inc/offramp/internal/infrastructure/webhook"
	"github.com/orris-inc/offramp/internal/interfaces/http/handlers/testutil"
	"github.com/orris-inc/offramp/internal/shared/biztime"
	"github.com/orris-inc/offramp/internal/shared/errors"
)

// =====================================================================
// Mocks
// =====================================================================

type mockDepositParser struct {
	mock.Mock
}

func (m *mockDepositParser) Parse(provider string, header http.Header, body []byte, receivedAt time.Time) (deposit.Event, error) {
	args := m.Called(provider, body)
	return args.Get(0).(deposit.Event), args.Error(1)
}

type mockPayoutParser struct {
	mock.Mock
}

func (m *mockPayoutParser) Parse(header http.Header, body []byte, receivedAt time.Time) (usecases.PayoutCallback, error) {
	args := m.Called(body)
	return args.Get(0).(usecases.PayoutCallback), args.Error(1)
}

type mockHandleDepositUC struct {
	mock.Mock
}

func (m *mockHandleDepositUC) Execute(ctx context.Context, ev deposit.Event) (*usecases.DepositResult, error) {
	args := m.Called(ev)
	if r := args.Get(0); r != nil {
		return r.(*usecases.DepositResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockHandlePayoutUC struct {
	mock.Mock
}

func (m *mockHandlePayoutUC) Execute(ctx context.Context, cb usecases.PayoutCallback) (*usecases.PayoutCallbackResult, error) {
	args := m.Called(cb)
	if r := args.Get(0); r != nil {
		return r.(*usecases.PayoutCallbackResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// =====================================================================
// Helpers
// =====================================================================

var webhookNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEvent() deposit.Event {
	return deposit.Event{
		Provider: webhook.ProviderCustody,
		Asset:    asset.USDT,
		Network:  asset.NetworkTron,
		Address:  "TXyz1234567890",
		Amount:   decimal.RequireFromString("100"),
		TxHash:   "0xabc",
		Finality: deposit.FinalityFinal,
	}
}

func newTestWebhookHandler(dp *mockDepositParser, pp *mockPayoutParser, duc *mockHandleDepositUC, puc *mockHandlePayoutUC) *WebhookHandler {
	return NewWebhookHandler(dp, pp, duc, puc, biztime.NewManualClock(webhookNow), testutil.NewMockLogger())
}

func depositContext(provider string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	c, w := testutil.NewRawRequestContext(http.MethodPost, "/api/v1/webhooks/deposits/"+provider, body, nil)
	testutil.SetURLParam(c, "provider", provider)
	return c, w
}

// =====================================================================
// HandleDeposit
// =====================================================================

func TestWebhookHandler_HandleDeposit_Success(t *testing.T) {
	body := []byte(`{"event":"deposit"}`)
	dp := &mockDepositParser{}
	duc := &mockHandleDepositUC{}
	dp.On("Parse", webhook.ProviderCustody, body).Return(testEvent(), nil)
	duc.On("Execute", testEvent()).Return(&usecases.DepositResult{
		Outcome:  usecases.OutcomeSettled,
		IntentID: "si_1",
	}, nil)

	handler := newTestWebhookHandler(dp, nil, duc, nil)
	c, w := depositContext(webhook.ProviderCustody, body)

	handler.HandleDeposit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.True(t, resp.Success)

	var result usecases.DepositResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, usecases.OutcomeSettled, result.Outcome)
	assert.Equal(t, "si_1", result.IntentID)
	dp.AssertExpectations(t)
	duc.AssertExpectations(t)
}

func TestWebhookHandler_HandleDeposit_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"missing signature", webhook.ErrMissingSignature, http.StatusUnauthorized},
		{"bad signature", webhook.ErrInvalidSignature, http.StatusUnauthorized},
		{"unknown provider", webhook.ErrUnknownProvider, http.StatusNotFound},
		{"malformed payload", assert.AnError, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{}`)
			dp := &mockDepositParser{}
			duc := &mockHandleDepositUC{}
			dp.On("Parse", "custody", body).Return(deposit.Event{}, tt.err)

			handler := newTestWebhookHandler(dp, nil, duc, nil)
			c, w := depositContext("custody", body)

			handler.HandleDeposit(c)

			assert.Equal(t, tt.wantCode, w.Code)
			duc.AssertNotCalled(t, "Execute", mock.Anything)
		})
	}
}

func TestWebhookHandler_HandleDeposit_UseCaseError(t *testing.T) {
	body := []byte(`{}`)
	dp := &mockDepositParser{}
	duc := &mockHandleDepositUC{}
	dp.On("Parse", webhook.ProviderCustody, body).Return(testEvent(), nil)
	duc.On("Execute", mock.Anything).Return(nil, errors.NewToleranceExceededError("amount outside tolerance"))

	handler := newTestWebhookHandler(dp, nil, duc, nil)
	c, w := depositContext(webhook.ProviderCustody, body)

	handler.HandleDeposit(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "tolerance_exceeded", resp.Error.Type)
}

func TestWebhookHandler_HandleDeposit_BodyTooLarge(t *testing.T) {
	dp := &mockDepositParser{}
	handler := newTestWebhookHandler(dp, nil, nil, nil)

	body := bytes.Repeat([]byte("x"), 64)
	c, w := depositContext(webhook.ProviderCustody, body)
	c.Request.Body = http.MaxBytesReader(w, c.Request.Body, 16)

	handler.HandleDeposit(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	dp.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything)
}

// =====================================================================
// HandlePayoutCallback
// =====================================================================

func TestWebhookHandler_HandlePayoutCallback_Success(t *testing.T) {
	body := []byte(`{"reference":"po_1","status":"success"}`)
	cb := usecases.PayoutCallback{
		IdempotencyKey: "payout:si_1:1",
		Reference:      "po_1",
		Result:         vo.ProviderResult{Reference: "po_1", Status: vo.ProviderCallSucceeded},
	}
	pp := &mockPayoutParser{}
	puc := &mockHandlePayoutUC{}
	pp.On("Parse", body).Return(cb, nil)
	puc.On("Execute", cb).Return(&usecases.PayoutCallbackResult{
		Outcome:  usecases.OutcomeSettled,
		IntentID: "si_1",
		State:    string(vo.SettlementStatePayoutSuccess),
	}, nil)

	handler := newTestWebhookHandler(nil, pp, nil, puc)
	c, w := testutil.NewRawRequestContext(http.MethodPost, "/api/v1/webhooks/payouts", body, nil)

	handler.HandlePayoutCallback(c)

	assert.Equal(t, http.StatusOK, w.Code)
	puc.AssertExpectations(t)
}

func TestWebhookHandler_HandlePayoutCallback_InvalidSignature(t *testing.T) {
	body := []byte(`{}`)
	pp := &mockPayoutParser{}
	puc := &mockHandlePayoutUC{}
	pp.On("Parse", body).Return(usecases.PayoutCallback{}, webhook.ErrInvalidSignature)

	handler := newTestWebhookHandler(nil, pp, nil, puc)
	c, w := testutil.NewRawRequestContext(http.MethodPost, "/api/v1/webhooks/payouts", body, nil)

	handler.HandlePayoutCallback(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	puc.AssertNotCalled(t, "Execute", mock.Anything)
}

func TestWebhookHandler_HandlePayoutCallback_UnknownSettlement(t *testing.T) {
	body := []byte(`{}`)
	pp := &mockPayoutParser{}
	puc := &mockHandlePayoutUC{}
	pp.On("Parse", body).Return(usecases.PayoutCallback{Reference: "po_x"}, nil)
	puc.On("Execute", mock.Anything).Return(nil, errors.NewNotFoundError("settlement not found"))

	handler := newTestWebhookHandler(nil, pp, nil, puc)
	c, w := testutil.NewRawRequestContext(http.MethodPost, "/api/v1/webhooks/payouts", body, nil)

	handler.HandlePayoutCallback(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/orris-inc/offramp/internal/application/settlement/usecases"
	vo "github.com/orris-inc/offramp/internal/domain/settlement/valueobjects"
	"github.com/orris-inc/offramp/internal/infrastructure/provider"
)

type payoutCallbackPayload struct {
	IdempotencyKey string `json:"idempotency_key"`
	Reference      string `json:"reference"`
	Status         string `json:"status"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
}

// PayoutCallbackParser verifies and decodes payout provider callbacks.
type PayoutCallbackParser struct {
	providerID string
	verifier   *Verifier
}

func NewPayoutCallbackParser(providerID, secret string) *PayoutCallbackParser {
	return &PayoutCallbackParser{providerID: providerID, verifier: NewVerifier(secret)}
}

func (p *PayoutCallbackParser) Parse(header http.Header, body []byte, receivedAt time.Time) (usecases.PayoutCallback, error) {
	if err := p.verifier.Verify(body, header.Get(HeaderPayoutSignature)); err != nil {
		return usecases.PayoutCallback{}, err
	}

	var payload payoutCallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return usecases.PayoutCallback{}, fmt.Errorf("malformed payout callback: %w", err)
	}
	if payload.Status == "" {
		return usecases.PayoutCallback{}, fmt.Errorf("payout callback is missing status")
	}

	status := strings.ToLower(strings.TrimSpace(payload.Status))
	return usecases.PayoutCallback{
		IdempotencyKey: strings.TrimSpace(payload.IdempotencyKey),
		Reference:      strings.TrimSpace(payload.Reference),
		Result: vo.ProviderResult{
			ProviderID:     p.providerID,
			Reference:      strings.TrimSpace(payload.Reference),
			Status:         provider.PayoutStatus(status),
			ProviderStatus: status,
			ErrorCode:      payload.ErrorCode,
			ErrorMessage:   payload.ErrorMessage,
			IdempotencyKey: strings.TrimSpace(payload.IdempotencyKey),
			RawPayload:     body,
			RecordedAt:     receivedAt,
		},
	}, nil
}

package valueobjects

import "time"

// ProviderCallStatus is the normalized outcome of a swap or payout call.
type ProviderCallStatus string

const (
	ProviderCallSucceeded ProviderCallStatus = "succeeded"
	ProviderCallPending   ProviderCallStatus = "pending"
	ProviderCallFailed    ProviderCallStatus = "failed"
)

// ProviderResult is the audit trail of one provider call, including the raw
// response body for triage.
type ProviderResult struct {
	ProviderID     string             `json:"provider_id,omitempty"`
	Reference      string             `json:"reference,omitempty"`
	Status         ProviderCallStatus `json:"status"`
	ProviderStatus string             `json:"provider_status,omitempty"`
	ErrorCode      string             `json:"error_code,omitempty"`
	ErrorMessage   string             `json:"error_message,omitempty"`
	HTTPStatus     int                `json:"http_status,omitempty"`
	IdempotencyKey string             `json:"idempotency_key"`
	RawPayload     []byte             `json:"raw_payload,omitempty"`
	RecordedAt     time.Time          `json:"recorded_at"`
}

func (r ProviderResult) Succeeded() bool {
	return r.Status == ProviderCallSucceeded
}

func (r ProviderResult) Failed() bool {
	return r.Status == ProviderCallFailed
}

package webhook

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/orris-inc/offramp/internal/domain/deposit"
)

const (
	ProviderCustody     = "custody"
	ProviderNowPayments = "nowpayments"

	HeaderCustodySignature     = "X-Custody-Signature"
	HeaderNowPaymentsSignature = "x-nowpayments-sig"
	HeaderPayoutSignature      = "X-Payout-Signature"
)

var ErrUnknownProvider = errors.New("unknown webhook provider")

// parseFunc turns a verified body into a deposit event.
type parseFunc func(body []byte, receivedAt time.Time) (deposit.Event, error)

type depositSource struct {
	header   string
	verifier *Verifier
	parse    parseFunc
}

// DepositParsers verifies and decodes deposit webhooks per provider. Only
// providers with a configured secret are accepted.
type DepositParsers struct {
	sources map[string]depositSource
}

func NewDepositParsers(custodySecret, nowPaymentsSecret string) *DepositParsers {
	p := &DepositParsers{sources: make(map[string]depositSource)}
	if custodySecret != "" {
		p.sources[ProviderCustody] = depositSource{
			header:   HeaderCustodySignature,
			verifier: NewVerifier(custodySecret),
			parse:    parseCustody,
		}
	}
	if nowPaymentsSecret != "" {
		p.sources[ProviderNowPayments] = depositSource{
			header:   HeaderNowPaymentsSignature,
			verifier: NewVerifier(nowPaymentsSecret),
			parse:    parseNowPayments,
		}
	}
	return p
}

// Providers lists the enabled provider names.
func (p *DepositParsers) Providers() []string {
	names := make([]string, 0, len(p.sources))
	for name := range p.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse checks the signature before decoding anything. Signature errors are
// ErrMissingSignature or ErrInvalidSignature; everything else is a malformed
// payload.
func (p *DepositParsers) Parse(provider string, header http.Header, body []byte, receivedAt time.Time) (deposit.Event, error) {
	src, ok := p.sources[provider]
	if !ok {
		return deposit.Event{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if err := src.verifier.Verify(body, header.Get(src.header)); err != nil {
		return deposit.Event{}, err
	}

	ev, err := src.parse(body, receivedAt)
	if err != nil {
		return deposit.Event{}, err
	}
	ev.Provider = provider
	ev.ReceivedAt = receivedAt
	ev.RawPayload = body
	if err := ev.Validate(); err != nil {
		return deposit.Event{}, err
	}
	return ev, nil
}

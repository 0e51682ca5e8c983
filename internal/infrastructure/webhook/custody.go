package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

type custodyPayload struct {
	Event string      `json:"event"`
	Data  custodyData `json:"data"`
}

type custodyData struct {
	Token         string          `json:"token"`
	Network       string          `json:"network"`
	Address       string          `json:"address"`
	Memo          string          `json:"memo"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	TxHash        string          `json:"tx_hash"`
	TransactionID string          `json:"transaction_id"`
}

var custodyFinality = map[string]deposit.Finality{
	"pending":    deposit.FinalityPending,
	"confirming": deposit.FinalityPending,
	"processing": deposit.FinalityPending,
	"confirmed":  deposit.FinalityFinal,
	"completed":  deposit.FinalityFinal,
	"success":    deposit.FinalityFinal,
	"failed":     deposit.FinalityFailed,
	"rejected":   deposit.FinalityFailed,
	"expired":    deposit.FinalityFailed,
}

func parseCustody(body []byte, _ time.Time) (deposit.Event, error) {
	var p custodyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return deposit.Event{}, fmt.Errorf("malformed custody payload: %w", err)
	}
	switch p.Event {
	case "deposit", "deposit.updated":
	default:
		return deposit.Event{}, fmt.Errorf("unsupported custody event: %q", p.Event)
	}

	d := p.Data
	if d.Token == "" || d.Network == "" || d.Status == "" {
		return deposit.Event{}, fmt.Errorf("custody payload is missing token, network or status")
	}
	code, err := asset.ParseCrypto(d.Token)
	if err != nil {
		return deposit.Event{}, err
	}
	network, err := asset.ParseNetwork(d.Network)
	if err != nil {
		return deposit.Event{}, err
	}
	status := strings.ToLower(strings.TrimSpace(d.Status))
	finality, ok := custodyFinality[status]
	if !ok {
		return deposit.Event{}, fmt.Errorf("unknown custody status: %q", d.Status)
	}

	return deposit.Event{
		Asset:        code,
		Network:      network,
		Address:      strings.TrimSpace(d.Address),
		Memo:         strings.TrimSpace(d.Memo),
		Amount:       d.Amount,
		TxHash:       strings.TrimSpace(d.TxHash),
		ProviderTxID: d.TransactionID,
		RawStatus:    status,
		Finality:     finality,
	}, nil
}

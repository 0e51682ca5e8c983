package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/offramp/internal/domain/deposit"
	"github.com/orris-inc/offramp/internal/domain/shared/asset"
)

// nowPaymentsIPN is the subset of the instant payment notification we read.
type nowPaymentsIPN struct {
	PaymentID     json.Number     `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PayAddress    string          `json:"pay_address"`
	PayinExtraID  string          `json:"payin_extra_id"`
	PayCurrency   string          `json:"pay_currency"`
	ActuallyPaid  decimal.Decimal `json:"actually_paid"`
	PayinHash     string          `json:"payin_hash"`
}

type currencyPair struct {
	code    asset.Code
	network asset.Network
}

var nowPaymentsCurrencies = map[string]currencyPair{
	"usdttrc20": {asset.USDT, asset.NetworkTron},
	"usdterc20": {asset.USDT, asset.NetworkEthereum},
	"usdtbsc":   {asset.USDT, asset.NetworkBSC},
	"usdtmatic": {asset.USDT, asset.NetworkPolygon},
	"usdtsol":   {asset.USDT, asset.NetworkSolana},
	"usdcerc20": {asset.USDC, asset.NetworkEthereum},
	"usdcbsc":   {asset.USDC, asset.NetworkBSC},
	"usdcmatic": {asset.USDC, asset.NetworkPolygon},
	"usdcsol":   {asset.USDC, asset.NetworkSolana},
	"btc":       {asset.BTC, asset.NetworkBitcoin},
	"eth":       {asset.ETH, asset.NetworkEthereum},
	"sol":       {asset.SOL, asset.NetworkSolana},
}

// partially_paid is final: the funds that arrived are on-chain and the
// tolerance check decides what happens to them.
var nowPaymentsFinality = map[string]deposit.Finality{
	"waiting":        deposit.FinalityPending,
	"confirming":     deposit.FinalityPending,
	"sending":        deposit.FinalityPending,
	"confirmed":      deposit.FinalityFinal,
	"finished":       deposit.FinalityFinal,
	"partially_paid": deposit.FinalityFinal,
	"failed":         deposit.FinalityFailed,
	"refunded":       deposit.FinalityFailed,
	"expired":        deposit.FinalityFailed,
}

func parseNowPayments(body []byte, _ time.Time) (deposit.Event, error) {
	var ipn nowPaymentsIPN
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&ipn); err != nil {
		return deposit.Event{}, fmt.Errorf("malformed nowpayments payload: %w", err)
	}

	pair, ok := nowPaymentsCurrencies[strings.ToLower(strings.TrimSpace(ipn.PayCurrency))]
	if !ok {
		return deposit.Event{}, fmt.Errorf("unsupported pay_currency: %q", ipn.PayCurrency)
	}
	status := strings.ToLower(strings.TrimSpace(ipn.PaymentStatus))
	finality, ok := nowPaymentsFinality[status]
	if !ok {
		return deposit.Event{}, fmt.Errorf("unknown nowpayments status: %q", ipn.PaymentStatus)
	}

	return deposit.Event{
		Asset:        pair.code,
		Network:      pair.network,
		Address:      strings.TrimSpace(ipn.PayAddress),
		Memo:         strings.TrimSpace(ipn.PayinExtraID),
		Amount:       ipn.ActuallyPaid,
		TxHash:       strings.TrimSpace(ipn.PayinHash),
		ProviderTxID: ipn.PaymentID.String(),
		RawStatus:    status,
		Finality:     finality,
	}, nil
}

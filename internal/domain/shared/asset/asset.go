// Package asset holds the catalog of crypto assets, networks and fiat
// currencies the service can quote, credit and pay out.
package asset

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies anything the ledger can hold: a crypto asset or a fiat currency.
type Code string

const (
	USDT Code = "USDT"
	USDC Code = "USDC"
	BTC  Code = "BTC"
	ETH  Code = "ETH"
	SOL  Code = "SOL"

	NGN Code = "NGN"
	GHS Code = "GHS"
	KES Code = "KES"
	USD Code = "USD"
)

type definition struct {
	decimals    int32
	fiat        bool
	coinGeckoID string
	networks    []Network
}

var catalog = map[Code]definition{
	USDT: {decimals: 6, coinGeckoID: "tether", networks: []Network{NetworkTron, NetworkEthereum, NetworkBSC, NetworkPolygon, NetworkSolana}},
	USDC: {decimals: 6, coinGeckoID: "usd-coin", networks: []Network{NetworkEthereum, NetworkBSC, NetworkPolygon, NetworkSolana}},
	BTC:  {decimals: 8, coinGeckoID: "bitcoin", networks: []Network{NetworkBitcoin}},
	ETH:  {decimals: 9, coinGeckoID: "ethereum", networks: []Network{NetworkEthereum}},
	SOL:  {decimals: 9, coinGeckoID: "solana", networks: []Network{NetworkSolana}},

	NGN: {decimals: 2, fiat: true},
	GHS: {decimals: 2, fiat: true},
	KES: {decimals: 2, fiat: true},
	USD: {decimals: 2, fiat: true},
}

// Parse normalizes and validates an asset or currency code.
func Parse(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := catalog[c]; !ok {
		return "", fmt.Errorf("unsupported asset: %q", s)
	}
	return c, nil
}

// ParseCrypto accepts only depositable crypto assets.
func ParseCrypto(s string) (Code, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	if c.IsFiat() {
		return "", fmt.Errorf("%s is not a crypto asset", c)
	}
	return c, nil
}

// ParseReceiveCurrency accepts only fiat currencies that can be paid out.
func ParseReceiveCurrency(s string) (Code, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	if !c.IsFiat() || c == USD {
		return "", fmt.Errorf("%s is not a payout currency", c)
	}
	return c, nil
}

func (c Code) IsValid() bool {
	_, ok := catalog[c]
	return ok
}

func (c Code) IsFiat() bool {
	return catalog[c].fiat
}

// Decimals is the ledger precision of the code: amounts are stored as
// integers of 10^-Decimals units.
func (c Code) Decimals() int32 {
	return catalog[c].decimals
}

func (c Code) CoinGeckoID() string {
	return catalog[c].coinGeckoID
}

func (c Code) String() string {
	return string(c)
}

// SupportsNetwork reports whether deposits of c are accepted on n.
func (c Code) SupportsNetwork(n Network) bool {
	for _, candidate := range catalog[c].networks {
		if candidate == n {
			return true
		}
	}
	return false
}

// Quantize truncates amount to the code's minimum unit.
func (c Code) Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Truncate(c.Decimals())
}

// ToMinorUnits converts amount to integer minor units. Amounts carrying more
// precision than the code allows are rejected rather than rounded.
func (c Code) ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !c.IsValid() {
		return 0, fmt.Errorf("unsupported asset: %q", c)
	}
	if !amount.Equal(c.Quantize(amount)) {
		return 0, fmt.Errorf("amount %s exceeds %s precision of %d decimals", amount, c, c.Decimals())
	}
	minor := amount.Shift(c.Decimals())
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(maxMinorUnits)) || minor.LessThan(decimal.NewFromInt(-maxMinorUnits)) {
		return 0, fmt.Errorf("amount %s out of range for %s", amount, c)
	}
	return minor.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func (c Code) FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -c.Decimals())
}

const maxMinorUnits = 1 << 62

// Cryptos returns the depositable assets in catalog order.
func Cryptos() []Code {
	return []Code{USDT, USDC, BTC, ETH, SOL}
}

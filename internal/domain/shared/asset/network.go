package asset

import (
	"fmt"
	"regexp"
	"strings"
)

// Network is the chain a deposit arrives on.
type Network string

const (
	NetworkTron     Network = "tron"
	NetworkEthereum Network = "ethereum"
	NetworkBSC      Network = "bsc"
	NetworkPolygon  Network = "polygon"
	NetworkSolana   Network = "solana"
	NetworkBitcoin  Network = "bitcoin"
)

var networkAliases = map[string]Network{
	"tron":     NetworkTron,
	"trc20":    NetworkTron,
	"trx":      NetworkTron,
	"ethereum": NetworkEthereum,
	"erc20":    NetworkEthereum,
	"eth":      NetworkEthereum,
	"bsc":      NetworkBSC,
	"bep20":    NetworkBSC,
	"polygon":  NetworkPolygon,
	"matic":    NetworkPolygon,
	"pol":      NetworkPolygon,
	"solana":   NetworkSolana,
	"sol":      NetworkSolana,
	"spl":      NetworkSolana,
	"bitcoin":  NetworkBitcoin,
	"btc":      NetworkBitcoin,
}

// ParseNetwork accepts canonical names and the token-standard aliases custody
// providers commonly send (trc20, erc20, bep20).
func ParseNetwork(s string) (Network, error) {
	n, ok := networkAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported network: %q", s)
	}
	return n, nil
}

func (n Network) IsValid() bool {
	switch n {
	case NetworkTron, NetworkEthereum, NetworkBSC, NetworkPolygon, NetworkSolana, NetworkBitcoin:
		return true
	default:
		return false
	}
}

func (n Network) String() string {
	return string(n)
}

var (
	evmAddressPattern     = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	tronAddressPattern    = regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`)
	solanaAddressPattern  = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	bitcoinAddressPattern = regexp.MustCompile(`^(bc1[02-9ac-hj-np-z]{11,71}|[13][1-9A-HJ-NP-Za-km-z]{25,34})$`)
)

// ValidateAddress checks the address format for the network. It does not
// verify checksums.
func (n Network) ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	var ok bool
	switch n {
	case NetworkEthereum, NetworkBSC, NetworkPolygon:
		ok = evmAddressPattern.MatchString(address)
	case NetworkTron:
		ok = tronAddressPattern.MatchString(address)
	case NetworkSolana:
		ok = solanaAddressPattern.MatchString(address)
	case NetworkBitcoin:
		ok = bitcoinAddressPattern.MatchString(address)
	default:
		return fmt.Errorf("cannot validate address for unknown network: %s", n)
	}
	if !ok {
		return fmt.Errorf("invalid %s address format", n)
	}
	return nil
}

// NormalizeAddress returns the form used for lookups. EVM addresses are
// case-insensitive; everything else is case-sensitive.
func (n Network) NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	switch n {
	case NetworkEthereum, NetworkBSC, NetworkPolygon:
		return strings.ToLower(address)
	default:
		return address
	}
}

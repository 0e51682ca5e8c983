package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62 alphabet: 0-9, A-Z, a-z
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	DefaultLength = 16
)

// Prefixes for externally visible identifiers (Stripe-style).
const (
	PrefixSellIntent = "si"
	PrefixSettlement = "stl"
	PrefixUnmatched  = "umd"
)

// Generate creates a cryptographically random Base62 string.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = alphabet[num.Int64()]
	}

	return string(result), nil
}

// NewWithPrefix creates an ID in the format "prefix_randomstring".
func NewWithPrefix(prefix string) (string, error) {
	id, err := Generate(DefaultLength)
	if err != nil {
		return "", err
	}
	return prefix + "_" + id, nil
}

// HasPrefix reports whether id was generated with prefix and has a well-formed body.
func HasPrefix(id, prefix string) bool {
	body, ok := strings.CutPrefix(id, prefix+"_")
	if !ok || body == "" {
		return false
	}
	for i := 0; i < len(body); i++ {
		if !strings.ContainsRune(alphabet, rune(body[i])) {
			return false
		}
	}
	return true
}

// Package idempotency derives the keys that make settlement side effects
// apply at most once. Keys are pure functions of their inputs so every retry
// of the same logical operation produces the same key.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func derive(prefix string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return prefix + "_" + hex.EncodeToString(sum[:])[:40]
}

// SwapKey is shared by every attempt of the swap for an intent.
func SwapKey(intentID string, amount decimal.Decimal) string {
	return derive("swp", "swap", intentID, amount.String())
}

// PayoutKey is unique per payout attempt. Attempts are numbered from 1.
func PayoutKey(intentID string, amount decimal.Decimal, attempt int) string {
	return derive("pay", "payout", intentID, amount.String(), strconv.Itoa(attempt))
}

func CreditKey(intentID string) string {
	return "credit:" + intentID
}

func ReserveKey(intentID string) string {
	return "payout-reserve:" + intentID
}

func CommitKey(intentID string) string {
	return "payout-commit:" + intentID
}

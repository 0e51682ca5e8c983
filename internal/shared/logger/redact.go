package logger

import (
	"log/slog"
	"strings"
)

// Attributes that must never reach log sinks in clear text.
var secretKeys = map[string]bool{
	"authorization": true,
	"client_secret": true,
	"password":      true,
	"secret":        true,
	"signature":     true,
	"token":         true,
}

const redacted = "[REDACTED]"

// redactAttr hides credentials and keeps only the last four digits of bank
// account numbers.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	switch {
	case secretKeys[key]:
		return slog.String(a.Key, redacted)
	case key == "account_number":
		return slog.String(a.Key, maskTail(a.Value.String()))
	}
	return a
}

func maskTail(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

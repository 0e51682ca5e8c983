package utils

import "strings"

// MaskEmail masks an email address for safe logging.
// Example: "ops@example.com" -> "o***@example.com"
func MaskEmail(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return "***"
	}
	local := parts[0]
	if len(local) <= 1 {
		return local + "***@" + parts[1]
	}
	return string(local[0]) + "***@" + parts[1]
}

// MaskAccountNumber keeps the last four digits of a bank account number.
// Example: "0123456789" -> "******6789"
func MaskAccountNumber(account string) string {
	if len(account) <= 4 {
		return strings.Repeat("*", len(account))
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}

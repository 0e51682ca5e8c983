package errors

import "net/http"

// Settlement error types. DuplicateDelivery has no error type: a replayed
// delivery is reported as a successful outcome.
const (
	ErrorTypeNoMatch           ErrorType = "no_match"
	ErrorTypeToleranceExceeded ErrorType = "tolerance_exceeded"
	ErrorTypePriceUnavailable  ErrorType = "price_unavailable"
	ErrorTypeInsufficientFunds ErrorType = "insufficient_funds"
	ErrorTypeProvider          ErrorType = "provider_error"
)

// NewNoMatchError reports a deposit with no pending intent to settle against.
func NewNoMatchError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNoMatch, http.StatusNotFound, message, details)
}

// NewToleranceExceededError reports a deposit whose amount falls outside the tolerance band.
func NewToleranceExceededError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeToleranceExceeded, http.StatusUnprocessableEntity, message, details)
}

// NewPriceUnavailableError reports a missing or stale price. Callers must fail closed.
func NewPriceUnavailableError(message string, details ...string) *AppError {
	return newAppError(ErrorTypePriceUnavailable, http.StatusServiceUnavailable, message, details)
}

func NewInsufficientFundsError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInsufficientFunds, http.StatusConflict, message, details)
}

// NewProviderError reports a failed swap or payout call.
func NewProviderError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeProvider, http.StatusBadGateway, message, details)
}

func IsNoMatchError(err error) bool {
	return hasType(err, ErrorTypeNoMatch)
}

func IsToleranceExceededError(err error) bool {
	return hasType(err, ErrorTypeToleranceExceeded)
}

func IsPriceUnavailableError(err error) bool {
	return hasType(err, ErrorTypePriceUnavailable)
}

func IsInsufficientFundsError(err error) bool {
	return hasType(err, ErrorTypeInsufficientFunds)
}

func IsProviderError(err error) bool {
	return hasType(err, ErrorTypeProvider)
}

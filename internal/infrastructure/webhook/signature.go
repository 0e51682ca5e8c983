package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Verifier checks hex encoded HMAC-SHA512 signatures over the raw body.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(strings.TrimSpace(secret))}
}

func (v *Verifier) Verify(body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	decoded, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(decoded, v.sum(body)) {
		return ErrInvalidSignature
	}
	return nil
}

func (v *Verifier) sum(body []byte) []byte {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign returns the signature a sender would attach to body.
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(NewVerifier(secret).sum(body))
}

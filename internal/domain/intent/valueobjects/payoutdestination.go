package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bankCodePattern      = regexp.MustCompile(`^[0-9]{3,6}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// PayoutDestination is the bank account a sell intent is paid out to.
type PayoutDestination struct {
	bankCode      string
	accountNumber string
	accountName   string
}

func NewPayoutDestination(bankCode, accountNumber, accountName string) (PayoutDestination, error) {
	bankCode = strings.TrimSpace(bankCode)
	accountNumber = strings.TrimSpace(accountNumber)
	accountName = strings.TrimSpace(accountName)

	if !bankCodePattern.MatchString(bankCode) {
		return PayoutDestination{}, fmt.Errorf("invalid bank code: %q", bankCode)
	}
	if !accountNumberPattern.MatchString(accountNumber) {
		return PayoutDestination{}, fmt.Errorf("account number must be 10 digits")
	}
	if accountName == "" {
		return PayoutDestination{}, fmt.Errorf("account name is required")
	}

	return PayoutDestination{
		bankCode:      bankCode,
		accountNumber: accountNumber,
		accountName:   accountName,
	}, nil
}

func (d PayoutDestination) BankCode() string      { return d.bankCode }
func (d PayoutDestination) AccountNumber() string { return d.accountNumber }
func (d PayoutDestination) AccountName() string   { return d.accountName }

func (d PayoutDestination) IsZero() bool {
	return d.accountNumber == ""
}

package metrics

import "time"

// Recorder receives settlement observations. Implementations must be safe
// for concurrent use.
type Recorder interface {
	DepositReceived(provider, outcome string)
	DepositAnomaly(assetCode string)
	UnmatchedDeposit(reason string)
	SettlementTransition(state string)
	ProviderCall(stage, status string, elapsed time.Duration)
	ProviderFailure(stage, code string)
	IntentsExpired(count int)
}

type nop struct{}

func Nop() Recorder { return nop{} }

func (nop) DepositReceived(string, string)             {}
func (nop) DepositAnomaly(string)                      {}
func (nop) UnmatchedDeposit(string)                    {}
func (nop) SettlementTransition(string)                {}
func (nop) ProviderCall(string, string, time.Duration) {}
func (nop) ProviderFailure(string, string)             {}
func (nop) IntentsExpired(int)                         {}

package valueobjects

// SettlementState is the stage a confirmed deposit has reached on its way to a bank payout.
type SettlementState string

const (
	SettlementStateCredited        SettlementState = "credited"
	SettlementStateSwapping        SettlementState = "swapping"
	SettlementStateSwapFailed      SettlementState = "swap_failed"
	SettlementStateSwapped         SettlementState = "swapped"
	SettlementStatePayoutRequested SettlementState = "payout_requested"
	SettlementStatePayoutSuccess   SettlementState = "payout_success"
	SettlementStatePayoutFailed    SettlementState = "payout_failed"
)

var settlementTransitions = map[SettlementState][]SettlementState{
	SettlementStateCredited:        {SettlementStateSwapping},
	SettlementStateSwapping:        {SettlementStateSwapped, SettlementStateSwapFailed},
	SettlementStateSwapFailed:      {SettlementStateSwapping},
	SettlementStateSwapped:         {SettlementStatePayoutRequested},
	SettlementStatePayoutRequested: {SettlementStatePayoutSuccess, SettlementStatePayoutFailed},
	SettlementStatePayoutFailed:    {SettlementStatePayoutRequested},
}

// stage orders states along the pipeline; failed states share the stage of
// the step that failed.
var settlementStage = map[SettlementState]int{
	SettlementStateCredited:        1,
	SettlementStateSwapping:        2,
	SettlementStateSwapFailed:      2,
	SettlementStateSwapped:         3,
	SettlementStatePayoutRequested: 4,
	SettlementStatePayoutFailed:    4,
	SettlementStatePayoutSuccess:   5,
}

func (s SettlementState) IsValid() bool {
	_, ok := settlementStage[s]
	return ok
}

func (s SettlementState) CanTransitionTo(next SettlementState) bool {
	for _, allowed := range settlementTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HasPassed reports whether s is at or beyond the stage of target, so a
// replayed request for target is a no-op.
func (s SettlementState) HasPassed(target SettlementState) bool {
	if s == target {
		return true
	}
	return settlementStage[s] > settlementStage[target]
}

func (s SettlementState) IsTerminal() bool {
	return s == SettlementStatePayoutSuccess
}

// NeedsOperator reports states that only an operator retry moves forward.
func (s SettlementState) NeedsOperator() bool {
	return s == SettlementStatePayoutFailed
}

func (s SettlementState) String() string {
	return string(s)
}

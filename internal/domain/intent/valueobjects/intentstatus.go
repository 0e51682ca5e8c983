package valueobjects

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusConfirmed IntentStatus = "confirmed"
	IntentStatusCompleted IntentStatus = "completed"
	IntentStatusUnderpaid IntentStatus = "underpaid"
	IntentStatusOverpaid  IntentStatus = "overpaid"
	IntentStatusExpired   IntentStatus = "expired"
	IntentStatusCancelled IntentStatus = "cancelled"
)

var intentTransitions = map[IntentStatus][]IntentStatus{
	IntentStatusPending: {
		IntentStatusConfirmed,
		IntentStatusUnderpaid,
		IntentStatusOverpaid,
		IntentStatusExpired,
		IntentStatusCancelled,
	},
	IntentStatusConfirmed: {IntentStatusCompleted},
}

func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentStatusPending, IntentStatusConfirmed, IntentStatusCompleted,
		IntentStatusUnderpaid, IntentStatusOverpaid, IntentStatusExpired, IntentStatusCancelled:
		return true
	default:
		return false
	}
}

func (s IntentStatus) IsPending() bool {
	return s == IntentStatusPending
}

// IsFinal reports whether no further transition can leave s.
func (s IntentStatus) IsFinal() bool {
	return len(intentTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is a legal intent transition.
func (s IntentStatus) CanTransitionTo(next IntentStatus) bool {
	for _, allowed := range intentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s IntentStatus) String() string {
	return string(s)
}

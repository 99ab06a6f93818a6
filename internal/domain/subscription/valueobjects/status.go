package valueobjects

type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "pending"
	StatusActive    SubscriptionStatus = "active"
	StatusSuspended SubscriptionStatus = "suspended"
	StatusPaused    SubscriptionStatus = "paused"
	StatusCancelled SubscriptionStatus = "cancelled"
)

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusPending:   true,
	StatusActive:    true,
	StatusSuspended: true,
	StatusPaused:    true,
	StatusCancelled: true,
}

var transitions = map[SubscriptionStatus][]SubscriptionStatus{
	StatusPending:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusSuspended, StatusCancelled, StatusPaused},
	StatusSuspended: {StatusActive, StatusCancelled},
	StatusPaused:    {StatusActive, StatusCancelled},
	StatusCancelled: {},
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCancelled
}

// IsChargeable reports whether a scheduled charge may run in this status.
func (s SubscriptionStatus) IsChargeable() bool {
	return s == StatusActive || s == StatusSuspended
}

func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

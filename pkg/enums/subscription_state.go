package enums

// SubscriptionState is the derived access state for a reader, computed from
// the payment ledger rather than persisted anywhere.
type SubscriptionState string

const (
	SubscriptionStateFree                SubscriptionState = "free"
	SubscriptionStateActive              SubscriptionState = "active"
	SubscriptionStatePendingCancellation SubscriptionState = "pending_cancellation"
)

// String implements fmt.Stringer.
func (s SubscriptionState) String() string {
	return string(s)
}

// Label returns the reader-facing status label.
func (s SubscriptionState) Label() string {
	if s == SubscriptionStateActive {
		return "subscribed"
	}
	return "free"
}

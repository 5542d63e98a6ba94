package subscriptions

import (
	"time"

	"github.com/ohyerin/magpress-backend/pkg/db/models"
	"github.com/ohyerin/magpress-backend/pkg/enums"
)

// Derivation is the computed access state for one reader at a point in time.
// Nothing here is persisted; it is recomputed from the ledger on every call.
type Derivation struct {
	State          enums.SubscriptionState
	TransactionKey string
	ExpiresAt      *time.Time
}

// Subscribed reports whether the derivation grants paid access.
func (d Derivation) Subscribed() bool {
	return d.State == enums.SubscriptionStateActive
}

// currentPerKey reduces a ledger snapshot to the authoritative row per
// transaction key, i.e. the one with the maximum created_at. Key order
// follows first appearance in the input so callers get a stable tie-break.
func currentPerKey(events []models.PaymentEvent) []models.PaymentEvent {
	latest := make(map[string]int, len(events))
	order := make([]string, 0, len(events))

	for i, event := range events {
		at, seen := latest[event.TransactionKey]
		if !seen {
			latest[event.TransactionKey] = i
			order = append(order, event.TransactionKey)
			continue
		}
		if event.CreatedAt.After(events[at].CreatedAt) {
			latest[event.TransactionKey] = i
		}
	}

	current := make([]models.PaymentEvent, 0, len(order))
	for _, key := range order {
		current = append(current, events[latest[key]])
	}
	return current
}

func withinWindow(event models.PaymentEvent, now time.Time) bool {
	return !now.Before(event.StartAt) && !now.After(event.EndGraceAt)
}

// Derive computes the subscription state from a ledger snapshot. A reader is
// active when the authoritative row of any transaction is Paid and its access
// window covers now. A cancelled cycle whose window has not yet lapsed is
// reported as pending cancellation; it does not grant access.
func Derive(events []models.PaymentEvent, now time.Time) Derivation {
	var pending *models.PaymentEvent

	for _, event := range currentPerKey(events) {
		if !withinWindow(event, now) {
			continue
		}
		switch event.Status {
		case enums.PaymentStatusPaid:
			expires := event.EndGraceAt
			return Derivation{
				State:          enums.SubscriptionStateActive,
				TransactionKey: event.TransactionKey,
				ExpiresAt:      &expires,
			}
		case enums.PaymentStatusCancel:
			if pending == nil {
				copied := event
				pending = &copied
			}
		}
	}

	if pending != nil {
		expires := pending.EndGraceAt
		return Derivation{
			State:          enums.SubscriptionStatePendingCancellation,
			TransactionKey: pending.TransactionKey,
			ExpiresAt:      &expires,
		}
	}
	return Derivation{State: enums.SubscriptionStateFree}
}

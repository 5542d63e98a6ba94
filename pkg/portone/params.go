package portone

import "time"

// Amount is the money envelope PortOne uses on payments and schedules.
type Amount struct {
	Total int64 `json:"total"`
}

// Customer identifies the paying customer on the gateway side.
type Customer struct {
	ID string `json:"id"`
}

// Payment is the gateway's authoritative record for one payment attempt.
// Older API revisions expose the identifier as "id", newer ones as
// "paymentId"; both are kept so callers can normalize.
type Payment struct {
	ID         string   `json:"id,omitempty"`
	PaymentID  string   `json:"paymentId,omitempty"`
	TxID       string   `json:"transactionId,omitempty"`
	Status     string   `json:"status,omitempty"`
	Amount     Amount   `json:"amount"`
	BillingKey string   `json:"billingKey,omitempty"`
	OrderName  string   `json:"orderName,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Customer   Customer `json:"customer"`
}

// BillingKeyPaymentParams requests an immediate charge against a billing key.
type BillingKeyPaymentParams struct {
	BillingKey string   `json:"billingKey"`
	OrderName  string   `json:"orderName"`
	Amount     Amount   `json:"amount"`
	Customer   Customer `json:"customer"`
	Currency   string   `json:"currency"`
	CustomData string   `json:"customData,omitempty"`
}

// SchedulePaymentParams describes the charge a schedule will fire.
type SchedulePaymentParams struct {
	BillingKey string   `json:"billingKey"`
	OrderName  string   `json:"orderName"`
	Customer   Customer `json:"customer"`
	Amount     Amount   `json:"amount"`
	Currency   string   `json:"currency"`
}

// CreateScheduleParams registers a future charge under a new payment id.
type CreateScheduleParams struct {
	Payment   SchedulePaymentParams `json:"payment"`
	TimeToPay time.Time             `json:"timeToPay"`
}

// Schedule is one entry in the gateway's schedule registry. PaymentID is the
// payment identifier the schedule will charge under, which is the join key
// back to the ledger's next_schedule_id.
type Schedule struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"paymentId"`
	Status    string    `json:"status,omitempty"`
	TimeToPay time.Time `json:"timeToPay"`
	Amount    Amount    `json:"amount"`
}

// ListSchedulesParams filters the schedule registry by billing key and
// time-to-pay window.
type ListSchedulesParams struct {
	BillingKey string
	From       time.Time
	Until      time.Time
}

type listSchedulesResponse struct {
	Items []Schedule `json:"items"`
}

type revokeSchedulesRequest struct {
	BillingKey  string   `json:"billingKey,omitempty"`
	ScheduleIDs []string `json:"scheduleIds,omitempty"`
}

// RevokedSchedules reports which schedule entries the gateway revoked.
type RevokedSchedules struct {
	RevokedScheduleIDs []string `json:"revokedScheduleIds"`
}

type cancelPaymentRequest struct {
	Reason string `json:"reason"`
}

// CancelledPayment is the gateway's acknowledgement of a cancellation.
type CancelledPayment struct {
	Cancellation map[string]any `json:"cancellation,omitempty"`
}

type apiError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

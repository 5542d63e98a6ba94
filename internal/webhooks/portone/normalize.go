package portone

import (
	gateway "github.com/ohyerin/magpress-backend/pkg/portone"
)

// NormalizedPayment is the flattened view of a gateway payment record used by
// the webhook transitions. The gateway has shipped the payment identifier
// under different field names across API revisions, so normalization applies
// a fixed precedence: the record's "id", then "paymentId", then the inbound
// webhook payment_id.
type NormalizedPayment struct {
	PaymentID  string
	Amount     int64
	BillingKey string
	OrderName  string
	CustomerID string
}

func normalizePayment(payment *gateway.Payment, inboundPaymentID string) NormalizedPayment {
	norm := NormalizedPayment{PaymentID: inboundPaymentID}
	if payment == nil {
		return norm
	}

	if payment.ID != "" {
		norm.PaymentID = payment.ID
	} else if payment.PaymentID != "" {
		norm.PaymentID = payment.PaymentID
	}

	norm.Amount = payment.Amount.Total
	norm.BillingKey = payment.BillingKey
	norm.OrderName = payment.OrderName
	norm.CustomerID = payment.Customer.ID
	return norm
}

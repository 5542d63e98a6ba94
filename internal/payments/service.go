package payments

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ohyerin/magpress-backend/internal/ledger"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
	gateway "github.com/ohyerin/magpress-backend/pkg/portone"
)

// Gateway is the slice of the PortOne client the payment actions use.
type Gateway interface {
	PayWithBillingKey(ctx context.Context, paymentID string, params gateway.BillingKeyPaymentParams) (*gateway.Payment, error)
	CancelPayment(ctx context.Context, paymentID, reason string) (*gateway.CancelledPayment, error)
}

// CheckoutCustomer identifies who the charge is for. Clients send it nested,
// matching the gateway's own payment shape.
type CheckoutCustomer struct {
	ID string `json:"id" validate:"required"`
}

// CheckoutInput is a reader-initiated charge against an issued billing key.
// Billing key issuance itself happens in the gateway's client-side flow.
type CheckoutInput struct {
	BillingKey string           `json:"billingKey" validate:"required"`
	OrderName  string           `json:"orderName" validate:"required"`
	Amount     int64            `json:"amount" validate:"required,gt=0"`
	Customer   CheckoutCustomer `json:"customer"`
	CustomData string           `json:"customData,omitempty"`
}

// CheckoutResult carries the generated payment id and the gateway's record.
// The ledger is not written here; that happens later via the Paid webhook.
type CheckoutResult struct {
	PaymentID string           `json:"paymentId"`
	Payment   *gateway.Payment `json:"portoneData,omitempty"`
}

// CancelInput asks the gateway to cancel a payment the caller owns.
type CancelInput struct {
	TransactionKey string `json:"transactionKey" validate:"required"`
	Reason         string `json:"reason,omitempty"`
}

// Service exposes the reader-facing payment actions.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
	Cancel(ctx context.Context, userID uuid.UUID, input CancelInput) (*gateway.CancelledPayment, error)
}

// ServiceParams holds the dependencies a payment service needs.
type ServiceParams struct {
	Gateway  Gateway
	Ledger   ledger.Service
	Currency string
	Logger   *logger.Logger
	Now      func() time.Time
}

func (p ServiceParams) validate() error {
	if p.Gateway == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "gateway client required")
	}
	if p.Ledger == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if p.Logger == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return nil
}

type service struct {
	gateway  Gateway
	ledger   ledger.Service
	currency string
	log      *logger.Logger
	now      func() time.Time
}

// NewService wires a payment action service.
func NewService(params ServiceParams) (Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.Currency == "" {
		params.Currency = "KRW"
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		gateway:  params.Gateway,
		ledger:   params.Ledger,
		currency: params.Currency,
		log:      params.Logger,
		now:      params.Now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.BillingKey == "" || input.OrderName == "" || input.Customer.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billingKey, orderName and customer.id are required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Customer.ID != userID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer does not match the authenticated user")
	}

	paymentID := s.newPaymentID()
	ctx = s.log.WithTransactionKey(ctx, paymentID)

	payment, err := s.gateway.PayWithBillingKey(ctx, paymentID, gateway.BillingKeyPaymentParams{
		BillingKey: input.BillingKey,
		OrderName:  input.OrderName,
		Amount:     gateway.Amount{Total: input.Amount},
		Customer:   gateway.Customer{ID: input.Customer.ID},
		Currency:   s.currency,
		CustomData: input.CustomData,
	})
	if err != nil {
		return nil, err
	}

	// the Paid webhook writes the ledger row, readers see the new state
	// once that delivery lands
	s.log.Info(ctx, "checkout charge accepted by gateway")
	return &CheckoutResult{PaymentID: paymentID, Payment: payment}, nil
}

func (s *service) Cancel(ctx context.Context, userID uuid.UUID, input CancelInput) (*gateway.CancelledPayment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.TransactionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transactionKey is required")
	}

	owned, err := s.ledger.OwnedBy(ctx, userID, input.TransactionKey)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment found for this user")
	}

	ctx = s.log.WithTransactionKey(ctx, input.TransactionKey)
	cancelled, err := s.gateway.CancelPayment(ctx, input.TransactionKey, input.Reason)
	if err != nil {
		return nil, err
	}

	// the Cancelled webhook writes the ledger row
	s.log.Info(ctx, "cancellation accepted by gateway")
	return cancelled, nil
}

func (s *service) newPaymentID() string {
	return fmt.Sprintf("payment_%d_%06d", s.now().UnixMilli(), rand.Intn(1_000_000))
}

package payments

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ohyerin/magpress-backend/internal/ledger"
	"github.com/ohyerin/magpress-backend/pkg/db/models"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
	gateway "github.com/ohyerin/magpress-backend/pkg/portone"
)

type stubGateway struct {
	payErr       error
	cancelErr    error
	paidIDs      []string
	paidParams   []gateway.BillingKeyPaymentParams
	cancelledIDs []string
}

func (s *stubGateway) PayWithBillingKey(ctx context.Context, paymentID string, params gateway.BillingKeyPaymentParams) (*gateway.Payment, error) {
	if s.payErr != nil {
		return nil, s.payErr
	}
	s.paidIDs = append(s.paidIDs, paymentID)
	s.paidParams = append(s.paidParams, params)
	return &gateway.Payment{ID: paymentID, Status: "PAID"}, nil
}

func (s *stubGateway) CancelPayment(ctx context.Context, paymentID, reason string) (*gateway.CancelledPayment, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	s.cancelledIDs = append(s.cancelledIDs, paymentID)
	return &gateway.CancelledPayment{}, nil
}

type stubLedger struct {
	owned    bool
	ownedErr error
	recorded int
}

func (s *stubLedger) WithTx(tx *gorm.DB) ledger.Service { return s }

func (s *stubLedger) RecordEvent(ctx context.Context, input ledger.RecordEventInput) (*models.PaymentEvent, error) {
	s.recorded++
	return nil, nil
}

func (s *stubLedger) List(ctx context.Context, filter ledger.ListFilter) ([]models.PaymentEvent, error) {
	return nil, nil
}

func (s *stubLedger) LatestPaid(ctx context.Context, transactionKey string) (*models.PaymentEvent, error) {
	return nil, nil
}

func (s *stubLedger) OwnedBy(ctx context.Context, userID uuid.UUID, transactionKey string) (bool, error) {
	return s.owned, s.ownedErr
}

func newService(t *testing.T, gw *stubGateway, lg *stubLedger) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Gateway:  gw,
		Ledger:   lg,
		Currency: "KRW",
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:      func() time.Time { return time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func checkoutInput(userID uuid.UUID) CheckoutInput {
	return CheckoutInput{
		BillingKey: "bk-1",
		OrderName:  "monthly subscription",
		Amount:     9900,
		Customer:   CheckoutCustomer{ID: userID.String()},
	}
}

func TestCheckoutInputDecodesContractBody(t *testing.T) {
	body := `{"billingKey":"bk-1","orderName":"monthly subscription","amount":9900,"customer":{"id":"u-1"},"customData":"plan=basic"}`

	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.DisallowUnknownFields()

	var input CheckoutInput
	if err := decoder.Decode(&input); err != nil {
		t.Fatalf("decode checkout body: %v", err)
	}
	if input.Customer.ID != "u-1" {
		t.Fatalf("expected customer id u-1, got %q", input.Customer.ID)
	}
	if input.CustomData != "plan=basic" {
		t.Fatalf("expected customData forwarded, got %q", input.CustomData)
	}
}

func TestCheckoutChargesGateway(t *testing.T) {
	gw := &stubGateway{}
	lg := &stubLedger{}
	svc := newService(t, gw, lg)

	userID := uuid.New()
	result, err := svc.Checkout(context.Background(), userID, checkoutInput(userID))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if result.PaymentID == "" || !strings.HasPrefix(result.PaymentID, "payment_") {
		t.Fatalf("expected generated payment id, got %q", result.PaymentID)
	}
	if len(gw.paidIDs) != 1 || gw.paidIDs[0] != result.PaymentID {
		t.Fatal("expected one charge call under the generated id")
	}
	params := gw.paidParams[0]
	if params.BillingKey != "bk-1" || params.Amount.Total != 9900 || params.Currency != "KRW" {
		t.Fatalf("unexpected charge params: %+v", params)
	}
	if params.Customer.ID != userID.String() {
		t.Fatalf("expected customer %s forwarded, got %q", userID, params.Customer.ID)
	}
	if lg.recorded != 0 {
		t.Fatal("checkout must not write the ledger")
	}
}

func TestCheckoutRejectsForeignCustomer(t *testing.T) {
	gw := &stubGateway{}
	svc := newService(t, gw, &stubLedger{})

	input := checkoutInput(uuid.New())
	input.Customer.ID = uuid.NewString()
	_, err := svc.Checkout(context.Background(), uuid.New(), input)
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", pkgerrors.As(err).Code())
	}
	if len(gw.paidIDs) != 0 {
		t.Fatal("gateway must not be called")
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc := newService(t, &stubGateway{}, &stubLedger{})
	userID := uuid.New()

	cases := []struct {
		name   string
		userID uuid.UUID
		mutate func(*CheckoutInput)
		code   pkgerrors.Code
	}{
		{"anonymous caller", uuid.Nil, nil, pkgerrors.CodeUnauthorized},
		{"missing billing key", userID, func(in *CheckoutInput) { in.BillingKey = "" }, pkgerrors.CodeValidation},
		{"missing order name", userID, func(in *CheckoutInput) { in.OrderName = "" }, pkgerrors.CodeValidation},
		{"missing customer id", userID, func(in *CheckoutInput) { in.Customer.ID = "" }, pkgerrors.CodeValidation},
		{"non-positive amount", userID, func(in *CheckoutInput) { in.Amount = 0 }, pkgerrors.CodeValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := checkoutInput(userID)
			if tc.mutate != nil {
				tc.mutate(&input)
			}
			_, err := svc.Checkout(context.Background(), tc.userID, input)
			if err == nil {
				t.Fatal("expected error")
			}
			if pkgerrors.As(err).Code() != tc.code {
				t.Fatalf("expected %v, got %v", tc.code, pkgerrors.As(err).Code())
			}
		})
	}
}

func TestCancelRequiresOwnership(t *testing.T) {
	gw := &stubGateway{}
	svc := newService(t, gw, &stubLedger{owned: false})

	_, err := svc.Cancel(context.Background(), uuid.New(), CancelInput{TransactionKey: "tx-1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", pkgerrors.As(err).Code())
	}
	if len(gw.cancelledIDs) != 0 {
		t.Fatal("gateway must not be called without ownership")
	}
}

func TestCancelCallsGatewayForOwnedTransaction(t *testing.T) {
	gw := &stubGateway{}
	lg := &stubLedger{owned: true}
	svc := newService(t, gw, lg)

	cancelled, err := svc.Cancel(context.Background(), uuid.New(), CancelInput{TransactionKey: "tx-1"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled == nil {
		t.Fatal("expected gateway acknowledgement")
	}
	if len(gw.cancelledIDs) != 1 || gw.cancelledIDs[0] != "tx-1" {
		t.Fatalf("expected one cancel call for tx-1, got %v", gw.cancelledIDs)
	}
	if lg.recorded != 0 {
		t.Fatal("cancel must not write the ledger")
	}
}

func TestCancelValidation(t *testing.T) {
	svc := newService(t, &stubGateway{}, &stubLedger{})

	_, err := svc.Cancel(context.Background(), uuid.Nil, CancelInput{TransactionKey: "tx-1"})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	_, err = svc.Cancel(context.Background(), uuid.New(), CancelInput{})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

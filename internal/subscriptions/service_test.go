package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ohyerin/magpress-backend/internal/ledger"
	"github.com/ohyerin/magpress-backend/pkg/db/models"
	"github.com/ohyerin/magpress-backend/pkg/enums"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
)

type stubLedger struct {
	rows       []models.PaymentEvent
	err        error
	lastFilter ledger.ListFilter
}

func (s *stubLedger) WithTx(tx *gorm.DB) ledger.Service { return s }

func (s *stubLedger) RecordEvent(ctx context.Context, input ledger.RecordEventInput) (*models.PaymentEvent, error) {
	return nil, nil
}

func (s *stubLedger) List(ctx context.Context, filter ledger.ListFilter) ([]models.PaymentEvent, error) {
	s.lastFilter = filter
	return s.rows, s.err
}

func (s *stubLedger) LatestPaid(ctx context.Context, transactionKey string) (*models.PaymentEvent, error) {
	return nil, nil
}

func (s *stubLedger) OwnedBy(ctx context.Context, userID uuid.UUID, transactionKey string) (bool, error) {
	return false, nil
}

func fixedNow() time.Time {
	return time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
}

func TestStatusSubscribed(t *testing.T) {
	start := fixedNow().AddDate(0, 0, -10)
	stub := &stubLedger{rows: []models.PaymentEvent{
		event("tx-1", enums.PaymentStatusPaid, start, start),
	}}
	svc, err := NewService(ServiceParams{Ledger: stub, Now: fixedNow})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	userID := uuid.New()
	status, err := svc.Status(context.Background(), userID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Subscribed || status.Status != "subscribed" {
		t.Fatalf("expected subscribed status, got %+v", status)
	}
	if status.TransactionKey != "tx-1" {
		t.Fatalf("expected transaction key surfaced, got %q", status.TransactionKey)
	}
	if stub.lastFilter.UserID == nil || *stub.lastFilter.UserID != userID {
		t.Fatal("expected user filter forwarded to ledger")
	}
}

func TestStatusFreeWhenLedgerEmpty(t *testing.T) {
	svc, _ := NewService(ServiceParams{Ledger: &stubLedger{}, Now: fixedNow})

	status, err := svc.Status(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Subscribed || status.Status != "free" {
		t.Fatalf("expected free status, got %+v", status)
	}
}

func TestStatusRequiresUserID(t *testing.T) {
	svc, _ := NewService(ServiceParams{Ledger: &stubLedger{}, Now: fixedNow})

	_, err := svc.Status(context.Background(), uuid.Nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", pkgerrors.As(err).Code())
	}
}

func TestStatusByTransactionKeys(t *testing.T) {
	start := fixedNow().AddDate(0, 0, -10)
	stub := &stubLedger{rows: []models.PaymentEvent{
		event("tx-9", enums.PaymentStatusPaid, start, start),
	}}
	svc, _ := NewService(ServiceParams{Ledger: stub, Now: fixedNow})

	status, err := svc.StatusByTransactionKeys(context.Background(), []string{"tx-9"})
	if err != nil {
		t.Fatalf("status by keys: %v", err)
	}
	if !status.Subscribed {
		t.Fatalf("expected subscribed, got %+v", status)
	}
	if len(stub.lastFilter.TransactionKeys) != 1 || stub.lastFilter.TransactionKeys[0] != "tx-9" {
		t.Fatal("expected key filter forwarded to ledger")
	}

	if _, err := svc.StatusByTransactionKeys(context.Background(), nil); err == nil {
		t.Fatal("expected validation error for empty key set")
	}
}

func TestNewServiceRequiresLedger(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected constructor error")
	}
}

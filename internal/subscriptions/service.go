package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ohyerin/magpress-backend/internal/ledger"
	"github.com/ohyerin/magpress-backend/pkg/db/models"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
)

// Status is the reader-facing view of a derived subscription state.
type Status struct {
	Subscribed     bool       `json:"subscribed"`
	Status         string     `json:"status"`
	TransactionKey string     `json:"transactionKey,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// Service derives subscription status from the payment ledger.
type Service interface {
	Status(ctx context.Context, userID uuid.UUID) (*Status, error)
	StatusByTransactionKeys(ctx context.Context, keys []string) (*Status, error)
}

// ServiceParams holds the dependencies a subscription service needs.
type ServiceParams struct {
	Ledger ledger.Service
	Now    func() time.Time
}

type service struct {
	ledger ledger.Service
	now    func() time.Time
}

// NewService wires a subscription status reader.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{ledger: params.Ledger, now: params.Now}, nil
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	events, err := s.ledger.List(ctx, ledger.ListFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	return s.statusFrom(events), nil
}

func (s *service) StatusByTransactionKeys(ctx context.Context, keys []string) (*Status, error) {
	if len(keys) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction keys are required")
	}
	events, err := s.ledger.List(ctx, ledger.ListFilter{TransactionKeys: keys})
	if err != nil {
		return nil, err
	}
	return s.statusFrom(events), nil
}

func (s *service) statusFrom(events []models.PaymentEvent) *Status {
	derived := Derive(events, s.now().UTC())
	return &Status{
		Subscribed:     derived.Subscribed(),
		Status:         derived.State.Label(),
		TransactionKey: derived.TransactionKey,
		ExpiresAt:      derived.ExpiresAt,
	}
}

package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ohyerin/magpress-backend/pkg/db/models"
	"github.com/ohyerin/magpress-backend/pkg/enums"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
)

// Service defines operations that record and read payment ledger events.
type Service interface {
	WithTx(tx *gorm.DB) Service
	RecordEvent(ctx context.Context, input RecordEventInput) (*models.PaymentEvent, error)
	List(ctx context.Context, filter ListFilter) ([]models.PaymentEvent, error)
	LatestPaid(ctx context.Context, transactionKey string) (*models.PaymentEvent, error)
	OwnedBy(ctx context.Context, userID uuid.UUID, transactionKey string) (bool, error)
}

// RecordEventInput captures the immutable data one ledger row requires.
type RecordEventInput struct {
	TransactionKey string
	Amount         int64
	Status         enums.PaymentStatus
	StartAt        time.Time
	EndAt          time.Time
	EndGraceAt     time.Time
	NextScheduleAt time.Time
	NextScheduleID string
	BillingKey     string
	OrderName      string
	CustomerID     string
	UserID         uuid.UUID
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) RecordEvent(ctx context.Context, input RecordEventInput) (*models.PaymentEvent, error) {
	if input.TransactionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction key is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.StartAt.IsZero() || input.EndAt.IsZero() || input.EndGraceAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access window is required")
	}
	if input.Status == enums.PaymentStatusCancel && input.Amount > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel events must carry a non-positive amount")
	}

	event := &models.PaymentEvent{
		TransactionKey: input.TransactionKey,
		Amount:         input.Amount,
		Status:         input.Status,
		StartAt:        input.StartAt,
		EndAt:          input.EndAt,
		EndGraceAt:     input.EndGraceAt,
		NextScheduleAt: input.NextScheduleAt,
		NextScheduleID: input.NextScheduleID,
		BillingKey:     input.BillingKey,
		OrderName:      input.OrderName,
		CustomerID:     input.CustomerID,
		UserID:         input.UserID,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		// a duplicate insert surfaces as a conflict, not a dependency failure
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist ledger event")
	}
	return event, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.PaymentEvent, error) {
	if filter.UserID == nil && len(filter.TransactionKeys) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a user id or transaction keys are required")
	}
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return events, nil
}

func (s *service) LatestPaid(ctx context.Context, transactionKey string) (*models.PaymentEvent, error) {
	if transactionKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction key is required")
	}
	event, err := s.repo.LatestPaidByTransactionKey(ctx, transactionKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest paid event")
	}
	return event, nil
}

func (s *service) OwnedBy(ctx context.Context, userID uuid.UUID, transactionKey string) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if transactionKey == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "transaction key is required")
	}
	owned, err := s.repo.ExistsForUser(ctx, userID, transactionKey)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check ledger ownership")
	}
	return owned, nil
}

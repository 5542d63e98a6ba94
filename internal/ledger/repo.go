package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ohyerin/magpress-backend/pkg/db"
	"github.com/ohyerin/magpress-backend/pkg/db/models"
	"github.com/ohyerin/magpress-backend/pkg/enums"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
)

// Repository manages persistence for payment ledger events. The table is
// append-only: there is deliberately no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.PaymentEvent) error
	List(ctx context.Context, filter ListFilter) ([]models.PaymentEvent, error)
	LatestPaidByTransactionKey(ctx context.Context, transactionKey string) (*models.PaymentEvent, error)
	ExistsForUser(ctx context.Context, userID uuid.UUID, transactionKey string) (bool, error)
}

// ListFilter narrows a ledger scan by owner and/or transaction keys.
type ListFilter struct {
	UserID          *uuid.UUID
	TransactionKeys []string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.PaymentEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment event already recorded")
		}
		return err
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.PaymentEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentEvent{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if len(filter.TransactionKeys) > 0 {
		query = query.Where("transaction_key IN ?", filter.TransactionKeys)
	}

	var events []models.PaymentEvent
	if err := query.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) LatestPaidByTransactionKey(ctx context.Context, transactionKey string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("transaction_key = ? AND status = ?", transactionKey, enums.PaymentStatusPaid).
		Order("created_at DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) ExistsForUser(ctx context.Context, userID uuid.UUID, transactionKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("user_id = ? AND transaction_key = ?", userID, transactionKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package magazines

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ohyerin/magpress-backend/pkg/db/models"
)

// Repository manages persistence for magazine articles.
type Repository interface {
	Create(ctx context.Context, magazine *models.Magazine) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Magazine, error)
	List(ctx context.Context, filter ListFilter) ([]models.Magazine, error)
}

// ListFilter narrows a magazine listing.
type ListFilter struct {
	Category string
	Limit    int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a magazine repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, magazine *models.Magazine) error {
	return r.db.WithContext(ctx).Create(magazine).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Magazine, error) {
	var magazine models.Magazine
	err := r.db.WithContext(ctx).First(&magazine, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &magazine, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Magazine, error) {
	query := r.db.WithContext(ctx).Model(&models.Magazine{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var magazines []models.Magazine
	if err := query.Order("created_at DESC").Find(&magazines).Error; err != nil {
		return nil, err
	}
	return magazines, nil
}

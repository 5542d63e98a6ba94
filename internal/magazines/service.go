package magazines

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ohyerin/magpress-backend/internal/subscriptions"
	"github.com/ohyerin/magpress-backend/pkg/db/models"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
)

// Summary is the public listing view. Premium body content is withheld here;
// readers fetch it through Get, which enforces the subscription gate.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Premium     bool      `json:"premium"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateInput is an authenticated article submission.
type CreateInput struct {
	Category    string   `json:"category" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Content     string   `json:"content" validate:"required"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl"`
	Premium     *bool    `json:"premium"`
}

// Service exposes the magazine catalogue.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Summary, error)
	Get(ctx context.Context, id uuid.UUID, readerID uuid.UUID) (*models.Magazine, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Magazine, error)
}

// ServiceParams holds the dependencies a magazine service needs.
type ServiceParams struct {
	Repo          Repository
	Subscriptions subscriptions.Service
}

type service struct {
	repo Repository
	subs subscriptions.Service
}

// NewService wires the magazine catalogue service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "magazine repository required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	return &service{repo: params.Repo, subs: params.Subscriptions}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	magazines, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list magazines")
	}

	summaries := make([]Summary, 0, len(magazines))
	for _, m := range magazines {
		summaries = append(summaries, Summary{
			ID:          m.ID,
			Category:    m.Category,
			Title:       m.Title,
			Description: m.Description,
			Tags:        m.Tags,
			ImageURL:    m.ImageURL,
			Premium:     m.Premium,
			CreatedAt:   m.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, readerID uuid.UUID) (*models.Magazine, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "magazine id is required")
	}

	magazine, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load magazine")
	}
	if magazine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "magazine not found")
	}

	if magazine.Premium {
		if readerID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "premium content requires an active subscription")
		}
		status, err := s.subs.Status(ctx, readerID)
		if err != nil {
			return nil, err
		}
		if !status.Subscribed {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "premium content requires an active subscription")
		}
	}
	return magazine, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Magazine, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.Category == "" || input.Title == "" || input.Content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category, title and content are required")
	}

	premium := true
	if input.Premium != nil {
		premium = *input.Premium
	}

	magazine := &models.Magazine{
		Category:    input.Category,
		Title:       input.Title,
		Description: input.Description,
		Content:     input.Content,
		Tags:        input.Tags,
		ImageURL:    input.ImageURL,
		Premium:     premium,
		UserID:      userID,
	}
	if err := s.repo.Create(ctx, magazine); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist magazine")
	}
	return magazine, nil
}

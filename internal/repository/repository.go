package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
)

// Repository defines the interface for persistent storage.
type Repository interface {
	// Forms
	CreateForm(ctx context.Context, form *domain.Form) error
	GetForm(ctx context.Context, id uuid.UUID) (*domain.Form, error)
	GetFormBySlug(ctx context.Context, slug string) (*domain.Form, error)
	ListForms(ctx context.Context) ([]*domain.Form, error)
	UpdateFormStatus(ctx context.Context, id uuid.UUID, status domain.FormStatus) error
	DeleteForm(ctx context.Context, id uuid.UUID) error

	// Responses
	CreateResponse(ctx context.Context, response *domain.Response) error
	GetResponse(ctx context.Context, id uuid.UUID) (*domain.Response, error)
	ListResponses(ctx context.Context, formID uuid.UUID) ([]*domain.Response, error)
	CountResponses(ctx context.Context, formID uuid.UUID) (int, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Repository) error) error

	// Lifecycle
	Close() error
}

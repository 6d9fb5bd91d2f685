package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/protomforms/backend/internal/domain"
	"github.com/protomforms/backend/internal/repository"
)

// Repository is an in-memory mock repository for testing.
type Repository struct {
	mu        sync.RWMutex
	forms     map[uuid.UUID]*domain.Form
	responses map[uuid.UUID]*domain.Response
}

// New creates a new mock repository.
func New() *Repository {
	return &Repository{
		forms:     make(map[uuid.UUID]*domain.Form),
		responses: make(map[uuid.UUID]*domain.Response),
	}
}

// Forms

func (r *Repository) CreateForm(ctx context.Context, form *domain.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.forms {
		if f.Slug == form.Slug {
			return domain.ErrConflict
		}
	}
	r.forms[form.ID] = form
	return nil
}

func (r *Repository) GetForm(ctx context.Context, id uuid.UUID) (*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

func (r *Repository) GetFormBySlug(ctx context.Context, slug string) (*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.forms {
		if f.Slug == slug {
			return f, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *Repository) ListForms(ctx context.Context) ([]*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.Form
	for _, f := range r.forms {
		result = append(result, f)
	}
	return result, nil
}

func (r *Repository) UpdateFormStatus(ctx context.Context, id uuid.UUID, status domain.FormStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.forms[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.Status = status
	return nil
}

func (r *Repository) DeleteForm(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.forms[id]; !ok {
		return domain.ErrNotFound
	}
	for respID, resp := range r.responses {
		if resp.FormID == id {
			delete(r.responses, respID)
		}
	}
	delete(r.forms, id)
	return nil
}

// Responses

func (r *Repository) CreateResponse(ctx context.Context, response *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if response.ProgressiveNumber == 0 {
		max := 0
		for _, resp := range r.responses {
			if resp.FormID == response.FormID && resp.ProgressiveNumber > max {
				max = resp.ProgressiveNumber
			}
		}
		response.ProgressiveNumber = max + 1
	}
	r.responses[response.ID] = response
	return nil
}

func (r *Repository) GetResponse(ctx context.Context, id uuid.UUID) (*domain.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return resp, nil
}

func (r *Repository) ListResponses(ctx context.Context, formID uuid.UUID) ([]*domain.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.Response
	for _, resp := range r.responses {
		if resp.FormID == formID {
			result = append(result, resp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProgressiveNumber < result[j].ProgressiveNumber
	})
	return result, nil
}

func (r *Repository) CountResponses(ctx context.Context, formID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, resp := range r.responses {
		if resp.FormID == formID {
			count++
		}
	}
	return count, nil
}

// WithTx executes fn against the same repository; the mock has no real
// transactions.
func (r *Repository) WithTx(ctx context.Context, fn func(repository.Repository) error) error {
	return fn(r)
}

func (r *Repository) Close() error {
	return nil
}

var _ repository.Repository = (*Repository)(nil)

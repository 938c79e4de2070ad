package memory

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/project"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/samber/lo"
)

// InMemoryProjectStore implements project.Repository
type InMemoryProjectStore struct {
	*InMemoryStore[*project.Project]
}

func NewInMemoryProjectStore() *InMemoryProjectStore {
	return &InMemoryProjectStore{
		InMemoryStore: NewInMemoryStore[*project.Project](),
	}
}

func copyProject(p *project.Project) *project.Project {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func (s *InMemoryProjectStore) Create(ctx context.Context, p *project.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyProject(p))
}

func (s *InMemoryProjectStore) Get(ctx context.Context, id string) (*project.Project, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyProject(p), nil
}

func (s *InMemoryProjectStore) GetByProviderAccountID(ctx context.Context, accountID string) (*project.Project, error) {
	filterFn := func(ctx context.Context, p *project.Project, _ interface{}) bool {
		return p.ProviderAccountID == accountID
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewErrorf("project with provider account id %s not found", accountID).
			Mark(ierr.ErrNotFound)
	}
	return copyProject(items[0]), nil
}

func (s *InMemoryProjectStore) List(ctx context.Context) ([]*project.Project, error) {
	items, err := s.InMemoryStore.List(ctx, nil, nil, projectSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *project.Project, _ int) *project.Project {
		return copyProject(p)
	}), nil
}

func projectSortFn(i, j *project.Project) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

// InMemoryBindingStore implements project.BindingRepository
type InMemoryBindingStore struct {
	*InMemoryStore[*project.CustomerProjectBinding]
}

func NewInMemoryBindingStore() *InMemoryBindingStore {
	return &InMemoryBindingStore{
		InMemoryStore: NewInMemoryStore[*project.CustomerProjectBinding](),
	}
}

func copyBinding(b *project.CustomerProjectBinding) *project.CustomerProjectBinding {
	if b == nil {
		return nil
	}
	out := *b
	if b.StartDate != nil {
		start := *b.StartDate
		out.StartDate = &start
	}
	if b.EndDate != nil {
		end := *b.EndDate
		out.EndDate = &end
	}
	return &out
}

func (s *InMemoryBindingStore) Create(ctx context.Context, b *project.CustomerProjectBinding) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, b.ID, copyBinding(b))
}

func (s *InMemoryBindingStore) Get(ctx context.Context, id string) (*project.CustomerProjectBinding, error) {
	b, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyBinding(b), nil
}

func (s *InMemoryBindingStore) ListByCustomer(ctx context.Context, customerID string) ([]*project.CustomerProjectBinding, error) {
	filterFn := func(ctx context.Context, b *project.CustomerProjectBinding, _ interface{}) bool {
		return b.CustomerID == customerID
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, bindingSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(b *project.CustomerProjectBinding, _ int) *project.CustomerProjectBinding {
		return copyBinding(b)
	}), nil
}

func (s *InMemoryBindingStore) ListByProject(ctx context.Context, projectID string) ([]*project.CustomerProjectBinding, error) {
	filterFn := func(ctx context.Context, b *project.CustomerProjectBinding, _ interface{}) bool {
		return b.ProjectID == projectID
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, bindingSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(b *project.CustomerProjectBinding, _ int) *project.CustomerProjectBinding {
		return copyBinding(b)
	}), nil
}

func bindingSortFn(i, j *project.CustomerProjectBinding) bool {
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID < j.ID
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

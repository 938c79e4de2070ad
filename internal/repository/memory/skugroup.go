package memory

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/skugroup"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/samber/lo"
)

// InMemorySkuGroupStore implements skugroup.Repository
type InMemorySkuGroupStore struct {
	groups   *InMemoryStore[*skugroup.SkuGroup]
	mappings *InMemoryStore[*skugroup.Mapping]
}

func NewInMemorySkuGroupStore() *InMemorySkuGroupStore {
	return &InMemorySkuGroupStore{
		groups:   NewInMemoryStore[*skugroup.SkuGroup](),
		mappings: NewInMemoryStore[*skugroup.Mapping](),
	}
}

func copySkuGroup(g *skugroup.SkuGroup) *skugroup.SkuGroup {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}

func copyMapping(m *skugroup.Mapping) *skugroup.Mapping {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

func (s *InMemorySkuGroupStore) CreateGroup(ctx context.Context, g *skugroup.SkuGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}
	existing, err := s.groups.List(ctx, nil, func(ctx context.Context, item *skugroup.SkuGroup, _ interface{}) bool {
		return item.Code == g.Code
	}, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ierr.NewErrorf("sku group with code %s already exists", g.Code).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.groups.Create(ctx, g.ID, copySkuGroup(g))
}

func (s *InMemorySkuGroupStore) GetGroup(ctx context.Context, id string) (*skugroup.SkuGroup, error) {
	g, err := s.groups.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySkuGroup(g), nil
}

func (s *InMemorySkuGroupStore) ListGroups(ctx context.Context) ([]*skugroup.SkuGroup, error) {
	items, err := s.groups.List(ctx, nil, nil, func(i, j *skugroup.SkuGroup) bool {
		return i.Code < j.Code
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(g *skugroup.SkuGroup, _ int) *skugroup.SkuGroup {
		return copySkuGroup(g)
	}), nil
}

func (s *InMemorySkuGroupStore) CreateMapping(ctx context.Context, m *skugroup.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	existing, err := s.mappings.List(ctx, nil, func(ctx context.Context, item *skugroup.Mapping, _ interface{}) bool {
		return item.ProductID == m.ProductID
	}, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ierr.NewErrorf("mapping for product %s already exists", m.ProductID).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.mappings.Create(ctx, m.ID, copyMapping(m))
}

func (s *InMemorySkuGroupStore) ListMappings(ctx context.Context) ([]*skugroup.Mapping, error) {
	items, err := s.mappings.List(ctx, nil, nil, func(i, j *skugroup.Mapping) bool {
		return i.ProductID < j.ProductID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(m *skugroup.Mapping, _ int) *skugroup.Mapping {
		return copyMapping(m)
	}), nil
}

// Clear empties both stores.
func (s *InMemorySkuGroupStore) Clear() {
	s.groups.Clear()
	s.mappings.Clear()
}

package memory

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/pricing"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/samber/lo"
)

// InMemoryPricingStore implements pricing.Repository
type InMemoryPricingStore struct {
	lists *InMemoryStore[*pricing.PricingList]
	rules *InMemoryStore[*pricing.PricingRule]
}

func NewInMemoryPricingStore() *InMemoryPricingStore {
	return &InMemoryPricingStore{
		lists: NewInMemoryStore[*pricing.PricingList](),
		rules: NewInMemoryStore[*pricing.PricingRule](),
	}
}

func copyPricingList(l *pricing.PricingList) *pricing.PricingList {
	if l == nil {
		return nil
	}
	out := *l
	return &out
}

func copyPricingRule(r *pricing.PricingRule) *pricing.PricingRule {
	if r == nil {
		return nil
	}
	out := *r
	if r.SkuGroupID != nil {
		id := *r.SkuGroupID
		out.SkuGroupID = &id
	}
	if r.EffectiveStart != nil {
		start := *r.EffectiveStart
		out.EffectiveStart = &start
	}
	if r.EffectiveEnd != nil {
		end := *r.EffectiveEnd
		out.EffectiveEnd = &end
	}
	if r.ListDiscount != nil {
		ld := *r.ListDiscount
		out.ListDiscount = &ld
	}
	if r.UnitPrice != nil {
		up := *r.UnitPrice
		out.UnitPrice = &up
	}
	if r.Tiered != nil {
		tiers := make([]pricing.Tier, len(r.Tiered.Tiers))
		copy(tiers, r.Tiered.Tiers)
		out.Tiered = &pricing.TieredParams{Tiers: tiers}
	}
	return &out
}

func (s *InMemoryPricingStore) CreateList(ctx context.Context, l *pricing.PricingList) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ListStatus == types.PricingListStatusActive {
		if existing, err := s.GetActiveList(ctx, l.CustomerID); err == nil && existing != nil {
			return ierr.NewErrorf("customer %s already has an active pricing list", l.CustomerID).
				WithHint("Archive the current active list first").
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return s.lists.Create(ctx, l.ID, copyPricingList(l))
}

func (s *InMemoryPricingStore) GetList(ctx context.Context, id string) (*pricing.PricingList, error) {
	l, err := s.lists.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPricingList(l), nil
}

func (s *InMemoryPricingStore) GetActiveList(ctx context.Context, customerID string) (*pricing.PricingList, error) {
	filterFn := func(ctx context.Context, l *pricing.PricingList, _ interface{}) bool {
		return l.CustomerID == customerID &&
			l.ListStatus == types.PricingListStatusActive &&
			l.Status == types.StatusPublished
	}
	items, err := s.lists.List(ctx, nil, filterFn, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewErrorf("no active pricing list for customer %s", customerID).
			Mark(ierr.ErrNotFound)
	}
	return copyPricingList(items[0]), nil
}

func (s *InMemoryPricingStore) UpdateList(ctx context.Context, l *pricing.PricingList) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ListStatus == types.PricingListStatusActive {
		if existing, err := s.GetActiveList(ctx, l.CustomerID); err == nil && existing.ID != l.ID {
			return ierr.NewErrorf("customer %s already has an active pricing list", l.CustomerID).
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return s.lists.Update(ctx, l.ID, copyPricingList(l))
}

func (s *InMemoryPricingStore) CreateRule(ctx context.Context, r *pricing.PricingRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, err := s.lists.Get(ctx, r.ListID); err != nil {
		return ierr.NewErrorf("pricing list %s not found", r.ListID).
			Mark(ierr.ErrNotFound)
	}
	return s.rules.Create(ctx, r.ID, copyPricingRule(r))
}

func (s *InMemoryPricingStore) GetRule(ctx context.Context, id string) (*pricing.PricingRule, error) {
	r, err := s.rules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPricingRule(r), nil
}

func (s *InMemoryPricingStore) ListRules(ctx context.Context, listID string) ([]*pricing.PricingRule, error) {
	filterFn := func(ctx context.Context, r *pricing.PricingRule, _ interface{}) bool {
		return r.ListID == listID && r.Status != types.StatusDeleted
	}
	items, err := s.rules.List(ctx, nil, filterFn, pricingRuleSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(r *pricing.PricingRule, _ int) *pricing.PricingRule {
		return copyPricingRule(r)
	}), nil
}

func (s *InMemoryPricingStore) DeleteRule(ctx context.Context, id string) error {
	return s.rules.Delete(ctx, id)
}

func pricingRuleSortFn(i, j *pricing.PricingRule) bool {
	if i.Priority != j.Priority {
		return i.Priority < j.Priority
	}
	if !i.CreatedAt.Equal(j.CreatedAt) {
		return i.CreatedAt.Before(j.CreatedAt)
	}
	return i.ID < j.ID
}

// Clear empties both stores.
func (s *InMemoryPricingStore) Clear() {
	s.lists.Clear()
	s.rules.Clear()
}

package memory

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/specialrule"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/samber/lo"
)

// InMemorySpecialRuleStore implements specialrule.Repository
type InMemorySpecialRuleStore struct {
	*InMemoryStore[*specialrule.SpecialRule]
}

func NewInMemorySpecialRuleStore() *InMemorySpecialRuleStore {
	return &InMemorySpecialRuleStore{
		InMemoryStore: NewInMemoryStore[*specialrule.SpecialRule](),
	}
}

func copySpecialRule(r *specialrule.SpecialRule) *specialrule.SpecialRule {
	if r == nil {
		return nil
	}
	out := *r
	if r.EffectiveStart != nil {
		start := *r.EffectiveStart
		out.EffectiveStart = &start
	}
	if r.EffectiveEnd != nil {
		end := *r.EffectiveEnd
		out.EffectiveEnd = &end
	}
	if r.CostMultiplier != nil {
		m := *r.CostMultiplier
		out.CostMultiplier = &m
	}
	if r.TargetCustomerID != nil {
		target := *r.TargetCustomerID
		out.TargetCustomerID = &target
	}
	return &out
}

func (s *InMemorySpecialRuleStore) Create(ctx context.Context, r *specialrule.SpecialRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, r.ID, copySpecialRule(r))
}

func (s *InMemorySpecialRuleStore) Get(ctx context.Context, id string) (*specialrule.SpecialRule, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySpecialRule(r), nil
}

func (s *InMemorySpecialRuleStore) Update(ctx context.Context, r *specialrule.SpecialRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, r.ID, copySpecialRule(r))
}

func (s *InMemorySpecialRuleStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

// ListEnabledForMonth returns rules in engine order: ascending priority,
// then creation time as tie break.
func (s *InMemorySpecialRuleStore) ListEnabledForMonth(ctx context.Context, customerID string, month types.BillingMonth) ([]*specialrule.SpecialRule, error) {
	filterFn := func(ctx context.Context, r *specialrule.SpecialRule, _ interface{}) bool {
		return r.CustomerID == customerID &&
			r.Enabled &&
			r.Status == types.StatusPublished &&
			r.EffectiveIn(month)
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, specialRuleSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(r *specialrule.SpecialRule, _ int) *specialrule.SpecialRule {
		return copySpecialRule(r)
	}), nil
}

func (s *InMemorySpecialRuleStore) ListByCustomer(ctx context.Context, customerID string) ([]*specialrule.SpecialRule, error) {
	filterFn := func(ctx context.Context, r *specialrule.SpecialRule, _ interface{}) bool {
		return r.CustomerID == customerID && r.Status != types.StatusDeleted
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, specialRuleSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(r *specialrule.SpecialRule, _ int) *specialrule.SpecialRule {
		return copySpecialRule(r)
	}), nil
}

func specialRuleSortFn(i, j *specialrule.SpecialRule) bool {
	if i.Priority != j.Priority {
		return i.Priority < j.Priority
	}
	if !i.CreatedAt.Equal(j.CreatedAt) {
		return i.CreatedAt.Before(j.CreatedAt)
	}
	return i.ID < j.ID
}

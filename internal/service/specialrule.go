package service

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/domain/specialrule"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// RuleEffect aggregates what one special rule did to a customer's items.
type RuleEffect struct {
	RuleID    string                `json:"rule_id"`
	RuleType  types.SpecialRuleType `json:"rule_type"`
	ItemCount int                   `json:"item_count"`
	// CostDelta is the signed change to the customer's total: negative
	// for exclusions and moves, (multiplier-1) x cost for overrides.
	CostDelta decimal.Decimal `json:"cost_delta"`
}

// MovedItem records a line item a MOVE_TO_CUSTOMER rule pulled off the
// invoice. Moved items are recorded on the run for operators; they are not
// reattributed to the target customer within the same run.
type MovedItem struct {
	Item             TaggedItem `json:"-"`
	ItemID           string     `json:"item_id"`
	RuleID           string     `json:"rule_id"`
	TargetCustomerID string     `json:"target_customer_id"`
}

// TransformResult is the output of the special rule engine for one
// customer.
type TransformResult struct {
	Items []TaggedItem
	// TotalCostDelta is the signed sum of every effect's CostDelta, so
	// rawTotal + TotalCostDelta equals the transformed total.
	TotalCostDelta decimal.Decimal
	Effects        []RuleEffect
	MovedItems     []MovedItem
}

// SpecialRuleService applies a customer's pre-pricing transformations.
type SpecialRuleService interface {
	Create(ctx context.Context, r *specialrule.SpecialRule) error
	Get(ctx context.Context, id string) (*specialrule.SpecialRule, error)
	Update(ctx context.Context, r *specialrule.SpecialRule) error
	Delete(ctx context.Context, id string) error
	ListByCustomer(ctx context.Context, customerID string) ([]*specialrule.SpecialRule, error)

	// Transform runs the first-match-wins engine over a customer's items
	// for a month.
	Transform(ctx context.Context, customerID string, month types.BillingMonth, runID string, items []TaggedItem) (*TransformResult, error)
}

type specialRuleService struct {
	ServiceParams
}

func NewSpecialRuleService(params ServiceParams) SpecialRuleService {
	return &specialRuleService{ServiceParams: params}
}

func (s *specialRuleService) Create(ctx context.Context, r *specialrule.SpecialRule) error {
	if r.ID == "" {
		r.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixSpecialRule)
	}
	r.BaseModel = types.GetDefaultBaseModel(ctx)
	if r.Type == types.SpecialRuleMoveToCustomer && r.TargetCustomerID != nil {
		if _, err := s.CustomerRepo.Get(ctx, *r.TargetCustomerID); err != nil {
			return err
		}
	}
	return s.SpecialRuleRepo.Create(ctx, r)
}

func (s *specialRuleService) Get(ctx context.Context, id string) (*specialrule.SpecialRule, error) {
	return s.SpecialRuleRepo.Get(ctx, id)
}

func (s *specialRuleService) Update(ctx context.Context, r *specialrule.SpecialRule) error {
	return s.SpecialRuleRepo.Update(ctx, r)
}

func (s *specialRuleService) Delete(ctx context.Context, id string) error {
	return s.SpecialRuleRepo.Delete(ctx, id)
}

func (s *specialRuleService) ListByCustomer(ctx context.Context, customerID string) ([]*specialrule.SpecialRule, error) {
	return s.SpecialRuleRepo.ListByCustomer(ctx, customerID)
}

func (s *specialRuleService) Transform(ctx context.Context, customerID string, month types.BillingMonth, runID string, items []TaggedItem) (*TransformResult, error) {
	rules, err := s.SpecialRuleRepo.ListEnabledForMonth(ctx, customerID, month)
	if err != nil {
		return nil, err
	}

	result := &TransformResult{TotalCostDelta: decimal.Zero}
	effects := make(map[string]*RuleEffect, len(rules))

	for _, tagged := range items {
		rule := resolveSpecialRule(rules, ruleTarget(tagged))
		if rule == nil {
			result.Items = append(result.Items, tagged)
			continue
		}

		effect := effects[rule.ID]
		if effect == nil {
			effect = &RuleEffect{RuleID: rule.ID, RuleType: rule.Type}
			effects[rule.ID] = effect
		}
		effect.ItemCount++

		cost := tagged.Item.Cost
		switch rule.Type {
		case types.SpecialRuleExcludeSku, types.SpecialRuleExcludeSkuGroup:
			effect.CostDelta = effect.CostDelta.Sub(cost)

		case types.SpecialRuleOverrideCost:
			overridden := cost.Mul(*rule.CostMultiplier)
			effect.CostDelta = effect.CostDelta.Add(overridden.Sub(cost))
			item := *tagged.Item
			item.Cost = overridden
			result.Items = append(result.Items, TaggedItem{
				Item:      &item,
				GroupID:   tagged.GroupID,
				GroupCode: tagged.GroupCode,
			})

		case types.SpecialRuleMoveToCustomer:
			effect.CostDelta = effect.CostDelta.Sub(cost)
			result.MovedItems = append(result.MovedItems, MovedItem{
				Item:             tagged,
				ItemID:           tagged.Item.ID,
				RuleID:           rule.ID,
				TargetCustomerID: *rule.TargetCustomerID,
			})
		}
	}

	// Flatten the per-rule aggregates in rule precedence order.
	for _, rule := range rules {
		if effect, ok := effects[rule.ID]; ok {
			result.Effects = append(result.Effects, *effect)
			result.TotalCostDelta = result.TotalCostDelta.Add(effect.CostDelta)
			s.Audit.Emit(ctx, audit.EventRuleApplied, runID, customerID, effect)
		}
	}

	return result, nil
}

func ruleTarget(tagged TaggedItem) specialrule.Target {
	return specialrule.Target{
		SkuID:      tagged.Item.ProductID,
		SkuGroupID: tagged.GroupID,
		ServiceID:  tagged.Item.ServiceID,
		ProjectID:  tagged.Item.ProjectID,
		AccountID:  tagged.Item.AccountID,
	}
}

// resolveSpecialRule returns the first rule whose predicate matches the
// target. Candidates arrive pre-sorted by ascending priority with creation
// order as tie break, so the first hit wins.
func resolveSpecialRule(candidates []*specialrule.SpecialRule, target specialrule.Target) *specialrule.SpecialRule {
	for _, rule := range candidates {
		if rule.Match.Matches(target) {
			return rule
		}
	}
	return nil
}

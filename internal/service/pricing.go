package service

import (
	"context"
	"slices"
	"strings"

	"github.com/cloudbill/cloudbill/internal/domain/pricing"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// GroupSummary is the priced aggregate of one sku group for one customer.
// It becomes an invoice line item.
type GroupSummary struct {
	GroupID   string
	GroupCode string

	RawAmount    decimal.Decimal
	PricedAmount decimal.Decimal
	EntryCount   int
	Currency     string

	RuleID       *string
	DiscountRate *decimal.Decimal
}

// PricingResult is the pricing engine output for one customer.
type PricingResult struct {
	Groups   []GroupSummary
	RawTotal decimal.Decimal
	Subtotal decimal.Decimal
	// Currency is the single currency across all items, or
	// types.CurrencyMixed when items disagree.
	Currency string
	// ListID is the pricing list consulted, empty when the customer has
	// none.
	ListID string
}

// PricingService resolves and applies a customer's pricing rules.
type PricingService interface {
	CreateList(ctx context.Context, l *pricing.PricingList) error
	GetActiveList(ctx context.Context, customerID string) (*pricing.PricingList, error)
	UpdateList(ctx context.Context, l *pricing.PricingList) error
	CreateRule(ctx context.Context, r *pricing.PricingRule) error
	ListRules(ctx context.Context, listID string) ([]*pricing.PricingRule, error)
	DeleteRule(ctx context.Context, id string) error

	// PriceItems aggregates transformed items per sku group and applies
	// the best matching rule to each group. A customer without an active
	// pricing list gets raw cost passed through.
	PriceItems(ctx context.Context, customerID string, month types.BillingMonth, items []TaggedItem) (*PricingResult, error)
}

type pricingService struct {
	ServiceParams
}

func NewPricingService(params ServiceParams) PricingService {
	return &pricingService{ServiceParams: params}
}

func (s *pricingService) CreateList(ctx context.Context, l *pricing.PricingList) error {
	if l.ID == "" {
		l.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixPricingList)
	}
	l.BaseModel = types.GetDefaultBaseModel(ctx)
	if _, err := s.CustomerRepo.Get(ctx, l.CustomerID); err != nil {
		return err
	}
	return s.PricingRepo.CreateList(ctx, l)
}

func (s *pricingService) GetActiveList(ctx context.Context, customerID string) (*pricing.PricingList, error) {
	return s.PricingRepo.GetActiveList(ctx, customerID)
}

func (s *pricingService) UpdateList(ctx context.Context, l *pricing.PricingList) error {
	return s.PricingRepo.UpdateList(ctx, l)
}

func (s *pricingService) CreateRule(ctx context.Context, r *pricing.PricingRule) error {
	if r.ID == "" {
		r.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixPricingRule)
	}
	r.BaseModel = types.GetDefaultBaseModel(ctx)
	if r.SkuGroupID != nil {
		if _, err := s.SkuGroupRepo.GetGroup(ctx, *r.SkuGroupID); err != nil {
			return err
		}
	}
	return s.PricingRepo.CreateRule(ctx, r)
}

func (s *pricingService) ListRules(ctx context.Context, listID string) ([]*pricing.PricingRule, error) {
	return s.PricingRepo.ListRules(ctx, listID)
}

func (s *pricingService) DeleteRule(ctx context.Context, id string) error {
	return s.PricingRepo.DeleteRule(ctx, id)
}

func (s *pricingService) PriceItems(ctx context.Context, customerID string, month types.BillingMonth, items []TaggedItem) (*PricingResult, error) {
	var candidates []*pricing.PricingRule
	listID := ""

	list, err := s.PricingRepo.GetActiveList(ctx, customerID)
	switch {
	case err == nil:
		listID = list.ID
		candidates, err = s.PricingRepo.ListRules(ctx, list.ID)
		if err != nil {
			return nil, err
		}
	case ierr.IsNotFound(err):
		// No list: every group passes through at raw cost.
	default:
		return nil, err
	}

	groups := aggregateGroups(items)
	result := &PricingResult{
		ListID:   listID,
		RawTotal: decimal.Zero,
		Subtotal: decimal.Zero,
	}

	for i := range groups {
		g := &groups[i]
		rule := resolvePricingRule(candidates, g.GroupID, month)
		applyPricingRule(g, rule)
		result.RawTotal = result.RawTotal.Add(g.RawAmount)
		result.Subtotal = result.Subtotal.Add(g.PricedAmount)
		result.Currency = mergeCurrency(result.Currency, g.Currency)
	}
	result.Groups = groups

	return result, nil
}

// aggregateGroups folds tagged items into per-group summaries, sorted by
// group code for stable invoice line ordering.
func aggregateGroups(items []TaggedItem) []GroupSummary {
	byGroup := make(map[string]*GroupSummary)
	for _, tagged := range items {
		g, ok := byGroup[tagged.GroupID]
		if !ok {
			g = &GroupSummary{
				GroupID:   tagged.GroupID,
				GroupCode: tagged.GroupCode,
			}
			byGroup[tagged.GroupID] = g
		}
		g.RawAmount = g.RawAmount.Add(tagged.Item.Cost)
		g.EntryCount++
		g.Currency = mergeCurrency(g.Currency, tagged.Item.Currency)
	}

	groups := make([]GroupSummary, 0, len(byGroup))
	for _, g := range byGroup {
		groups = append(groups, *g)
	}
	slices.SortFunc(groups, func(a, b GroupSummary) int {
		return strings.Compare(a.GroupCode, b.GroupCode)
	})
	return groups
}

// applyPricingRule prices one group aggregate. A nil rule passes raw cost
// through.
func applyPricingRule(g *GroupSummary, rule *pricing.PricingRule) {
	if rule == nil {
		g.PricedAmount = g.RawAmount
		return
	}
	ruleID := rule.ID
	g.RuleID = &ruleID

	switch rule.Type {
	case types.PricingRuleListDiscount:
		rate := rule.ListDiscount.DiscountRate
		g.DiscountRate = &rate
		g.PricedAmount = g.RawAmount.Mul(rate)

	case types.PricingRuleUnitPrice:
		// The unit rate is recorded for audit only; the raw cost passes
		// through unchanged. Known limitation carried over deliberately:
		// downstream reporting depends on it.
		rate := rule.UnitPrice.UnitPrice
		g.DiscountRate = &rate
		g.PricedAmount = g.RawAmount

	case types.PricingRuleTiered:
		tier := rule.Tiered.SelectTier(g.RawAmount)
		if tier == nil || tier.Rate == nil {
			// No band contains the cost, or the band is unit-priced:
			// pass through, mirroring the UNIT_PRICE behavior.
			g.PricedAmount = g.RawAmount
			return
		}
		g.DiscountRate = tier.Rate
		g.PricedAmount = g.RawAmount.Mul(*tier.Rate)
	}
}

// resolvePricingRule picks the best rule for a group: lowest priority value
// wins, a group-specific rule beats a wildcard at equal priority, creation
// order breaks remaining ties. Rules whose window excludes the month are
// never returned.
func resolvePricingRule(candidates []*pricing.PricingRule, groupID string, month types.BillingMonth) *pricing.PricingRule {
	var best *pricing.PricingRule
	for _, rule := range candidates {
		if !rule.EffectiveIn(month) {
			continue
		}
		if !rule.Wildcard() && *rule.SkuGroupID != groupID {
			continue
		}
		if best == nil || pricingRuleBeats(rule, best) {
			best = rule
		}
	}
	return best
}

func pricingRuleBeats(a, b *pricing.PricingRule) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Wildcard() != b.Wildcard() {
		return !a.Wildcard()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func mergeCurrency(current, next string) string {
	switch {
	case next == "":
		return current
	case current == "":
		return next
	case current == next:
		return current
	default:
		return types.CurrencyMixed
	}
}

package pricing

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// MaxDiscountRate bounds LIST_DISCOUNT rates; rates above 1.0 are markups.
var MaxDiscountRate = decimal.NewFromInt(10)

// ListDiscountParams multiplies raw cost by DiscountRate
// (0.90 = 10% off, 1.20 = 20% markup).
type ListDiscountParams struct {
	DiscountRate decimal.Decimal `json:"discount_rate"`
}

// UnitPriceParams carries a per-unit price. The engine records the rate
// for audit but passes the raw cost through; see the pricing service for
// the documented limitation.
type UnitPriceParams struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Tier is one spend band of a TIERED rule. The band is [From, To); a nil
// To makes the band open-ended. Exactly one of Rate or UnitPrice is set.
type Tier struct {
	From      decimal.Decimal  `json:"from"`
	To        *decimal.Decimal `json:"to,omitempty"`
	Rate      *decimal.Decimal `json:"rate,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Contains reports whether raw cost falls inside the band.
func (t Tier) Contains(cost decimal.Decimal) bool {
	if cost.LessThan(t.From) {
		return false
	}
	return t.To == nil || cost.LessThan(*t.To)
}

// TieredParams is an ordered list of spend tiers.
type TieredParams struct {
	Tiers []Tier `json:"tiers"`
}

// PricingRule resolves a discount for line items of a sku group. A nil
// SkuGroupID is a wildcard that applies to every group; at equal priority
// a specific rule beats a wildcard.
type PricingRule struct {
	ID         string                `json:"id"`
	ListID     string                `json:"list_id"`
	Type       types.PricingRuleType `json:"type"`
	SkuGroupID *string               `json:"sku_group_id,omitempty"`
	Priority   int                   `json:"priority"`

	EffectiveStart *time.Time `json:"effective_start,omitempty"`
	EffectiveEnd   *time.Time `json:"effective_end,omitempty"`

	// Exactly one of the following is set, matching Type.
	ListDiscount *ListDiscountParams `json:"list_discount,omitempty"`
	UnitPrice    *UnitPriceParams    `json:"unit_price,omitempty"`
	Tiered       *TieredParams       `json:"tiered,omitempty"`

	types.BaseModel
}

// Wildcard reports whether the rule applies to all sku groups.
func (r *PricingRule) Wildcard() bool {
	return r.SkuGroupID == nil
}

// EffectiveIn reports whether the rule's window overlaps the billing month.
func (r *PricingRule) EffectiveIn(month types.BillingMonth) bool {
	return month.OverlapsWindow(r.EffectiveStart, r.EffectiveEnd)
}

// Validate enforces the per-type parameter schema at the repository
// boundary so the engine consumes strongly-typed variants only.
func (r *PricingRule) Validate() error {
	if r.ListID == "" {
		return ierr.NewError("pricing rule list id is required").
			Mark(ierr.ErrValidation)
	}
	if !r.Type.Validate() {
		return ierr.NewErrorf("invalid pricing rule type %s", r.Type).
			Mark(ierr.ErrValidation)
	}
	if r.SkuGroupID != nil && *r.SkuGroupID == "" {
		return ierr.NewError("pricing rule sku_group_id must be nil or non-empty").
			Mark(ierr.ErrValidation)
	}
	if r.EffectiveStart != nil && r.EffectiveEnd != nil && r.EffectiveEnd.Before(*r.EffectiveStart) {
		return ierr.NewError("pricing rule effective window is inverted").
			Mark(ierr.ErrValidation)
	}

	set := 0
	if r.ListDiscount != nil {
		set++
	}
	if r.UnitPrice != nil {
		set++
	}
	if r.Tiered != nil {
		set++
	}
	if set != 1 {
		return ierr.NewError("pricing rule must carry exactly one parameter variant").
			Mark(ierr.ErrValidation)
	}

	switch r.Type {
	case types.PricingRuleListDiscount:
		if r.ListDiscount == nil {
			return ierr.NewError("LIST_DISCOUNT rule requires list_discount params").
				Mark(ierr.ErrValidation)
		}
		rate := r.ListDiscount.DiscountRate
		if rate.IsNegative() || rate.GreaterThan(MaxDiscountRate) {
			return ierr.NewErrorf("discount_rate %s out of range [0, %s]", rate, MaxDiscountRate).
				Mark(ierr.ErrValidation)
		}
	case types.PricingRuleUnitPrice:
		if r.UnitPrice == nil {
			return ierr.NewError("UNIT_PRICE rule requires unit_price params").
				Mark(ierr.ErrValidation)
		}
		if r.UnitPrice.UnitPrice.IsNegative() {
			return ierr.NewError("unit_price must be non-negative").
				Mark(ierr.ErrValidation)
		}
	case types.PricingRuleTiered:
		if r.Tiered == nil {
			return ierr.NewError("TIERED rule requires tiered params").
				Mark(ierr.ErrValidation)
		}
		if err := validateTiers(r.Tiered.Tiers); err != nil {
			return err
		}
	}
	return nil
}

func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return ierr.NewError("TIERED rule requires at least one tier").
			Mark(ierr.ErrValidation)
	}
	for i, t := range tiers {
		if (t.Rate == nil) == (t.UnitPrice == nil) {
			return ierr.NewErrorf("tier %d must set exactly one of rate or unit_price", i).
				Mark(ierr.ErrValidation)
		}
		if t.To != nil && !t.To.GreaterThan(t.From) {
			return ierr.NewErrorf("tier %d upper bound must exceed lower bound", i).
				Mark(ierr.ErrValidation)
		}
		if i > 0 {
			prev := tiers[i-1]
			if prev.To == nil {
				return ierr.NewErrorf("tier %d follows an open-ended tier", i).
					Mark(ierr.ErrValidation)
			}
			if !t.From.Equal(*prev.To) {
				return ierr.NewErrorf("tier %d is not contiguous with its predecessor", i).
					Mark(ierr.ErrValidation)
			}
		}
	}
	if !tiers[0].From.IsZero() {
		return ierr.NewError("first tier must start at zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SelectTier returns the tier containing cost. A cost above all bounded
// tiers resolves to the last tier when it is open-ended.
func (p *TieredParams) SelectTier(cost decimal.Decimal) *Tier {
	for i := range p.Tiers {
		if p.Tiers[i].Contains(cost) {
			return &p.Tiers[i]
		}
	}
	if n := len(p.Tiers); n > 0 && p.Tiers[n-1].To == nil {
		return &p.Tiers[n-1]
	}
	return nil
}

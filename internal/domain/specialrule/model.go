package specialrule

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// MaxCostMultiplier bounds OVERRIDE_COST markups.
var MaxCostMultiplier = decimal.NewFromInt(10)

// Match is the predicate of a special rule. Every non-empty field must
// match the line item; empty fields are wildcards.
type Match struct {
	SkuID      string `json:"sku_id,omitempty"`
	SkuGroupID string `json:"sku_group_id,omitempty"`
	ServiceID  string `json:"service_id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
}

// Empty reports whether the predicate matches everything.
func (m Match) Empty() bool {
	return m == Match{}
}

// Target is the view of a line item a special rule predicate is evaluated
// against, with its sku group already resolved.
type Target struct {
	SkuID      string
	SkuGroupID string
	ServiceID  string
	ProjectID  string
	AccountID  string
}

// Matches evaluates the predicate against a line item target.
func (m Match) Matches(t Target) bool {
	if m.SkuID != "" && m.SkuID != t.SkuID {
		return false
	}
	if m.SkuGroupID != "" && m.SkuGroupID != t.SkuGroupID {
		return false
	}
	if m.ServiceID != "" && m.ServiceID != t.ServiceID {
		return false
	}
	if m.ProjectID != "" && m.ProjectID != t.ProjectID {
		return false
	}
	if m.AccountID != "" && m.AccountID != t.AccountID {
		return false
	}
	return true
}

// SpecialRule is a customer-scoped pre-pricing transformation. Rules are
// applied before pricing, first match wins, ordered by ascending priority
// with creation order as tie break.
type SpecialRule struct {
	ID         string                `json:"id"`
	CustomerID string                `json:"customer_id"`
	Type       types.SpecialRuleType `json:"type"`
	Match      Match                 `json:"match"`
	Priority   int                   `json:"priority"`
	Enabled    bool                  `json:"enabled"`

	EffectiveStart *time.Time `json:"effective_start,omitempty"`
	EffectiveEnd   *time.Time `json:"effective_end,omitempty"`

	// CostMultiplier applies to OVERRIDE_COST rules only: 0 makes the
	// item free, values above 1 are a markup.
	CostMultiplier *decimal.Decimal `json:"cost_multiplier,omitempty"`

	// TargetCustomerID applies to MOVE_TO_CUSTOMER rules only.
	TargetCustomerID *string `json:"target_customer_id,omitempty"`

	types.BaseModel
}

// Validate enforces the per-type parameter schema. It runs at the
// repository boundary so the engine only ever sees well-formed variants.
func (r *SpecialRule) Validate() error {
	if r.CustomerID == "" {
		return ierr.NewError("special rule customer id is required").
			Mark(ierr.ErrValidation)
	}
	if !r.Type.Validate() {
		return ierr.NewErrorf("invalid special rule type %s", r.Type).
			Mark(ierr.ErrValidation)
	}
	if r.EffectiveStart != nil && r.EffectiveEnd != nil && r.EffectiveEnd.Before(*r.EffectiveStart) {
		return ierr.NewError("special rule effective window is inverted").
			Mark(ierr.ErrValidation)
	}

	switch r.Type {
	case types.SpecialRuleOverrideCost:
		if r.CostMultiplier == nil {
			return ierr.NewError("OVERRIDE_COST rule requires cost_multiplier").
				Mark(ierr.ErrValidation)
		}
		if r.CostMultiplier.IsNegative() || r.CostMultiplier.GreaterThan(MaxCostMultiplier) {
			return ierr.NewErrorf("cost_multiplier %s out of range [0, %s]",
				r.CostMultiplier, MaxCostMultiplier).
				WithHint("Cost multiplier must be between 0 and 10").
				Mark(ierr.ErrValidation)
		}
	case types.SpecialRuleMoveToCustomer:
		if r.TargetCustomerID == nil || *r.TargetCustomerID == "" {
			return ierr.NewError("MOVE_TO_CUSTOMER rule requires target_customer_id").
				Mark(ierr.ErrValidation)
		}
		if *r.TargetCustomerID == r.CustomerID {
			return ierr.NewError("MOVE_TO_CUSTOMER target equals rule customer").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// EffectiveIn reports whether the rule's window overlaps the billing month.
func (r *SpecialRule) EffectiveIn(month types.BillingMonth) bool {
	return month.OverlapsWindow(r.EffectiveStart, r.EffectiveEnd)
}

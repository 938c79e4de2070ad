package types

// SpecialRuleType is the kind of pre-pricing transformation a special rule
// performs on raw line items.
type SpecialRuleType string

const (
	SpecialRuleExcludeSku      SpecialRuleType = "EXCLUDE_SKU"
	SpecialRuleExcludeSkuGroup SpecialRuleType = "EXCLUDE_SKU_GROUP"
	SpecialRuleOverrideCost    SpecialRuleType = "OVERRIDE_COST"
	SpecialRuleMoveToCustomer  SpecialRuleType = "MOVE_TO_CUSTOMER"
)

func (t SpecialRuleType) Validate() bool {
	switch t {
	case SpecialRuleExcludeSku, SpecialRuleExcludeSkuGroup,
		SpecialRuleOverrideCost, SpecialRuleMoveToCustomer:
		return true
	}
	return false
}

// PricingRuleType is the kind of discount/markup a pricing rule applies
// after special rules have run.
type PricingRuleType string

const (
	PricingRuleListDiscount PricingRuleType = "LIST_DISCOUNT"
	PricingRuleUnitPrice    PricingRuleType = "UNIT_PRICE"
	PricingRuleTiered       PricingRuleType = "TIERED"
)

func (t PricingRuleType) Validate() bool {
	switch t {
	case PricingRuleListDiscount, PricingRuleUnitPrice, PricingRuleTiered:
		return true
	}
	return false
}

// PricingListStatus is the lifecycle of a customer's pricing list. At most
// one list per customer is ACTIVE at a time.
type PricingListStatus string

const (
	PricingListStatusActive   PricingListStatus = "ACTIVE"
	PricingListStatusDraft    PricingListStatus = "DRAFT"
	PricingListStatusArchived PricingListStatus = "ARCHIVED"
)

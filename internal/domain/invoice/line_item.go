package invoice

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// InvoiceLineItem is one product-group aggregate within an invoice. It
// keeps both the raw and priced amounts plus the rule that produced them
// so an operator can drill down from an invoice row to the pricing that
// shaped it.
type InvoiceLineItem struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`

	SkuGroupID   string `json:"sku_group_id"`
	SkuGroupCode string `json:"sku_group_code"`

	RawAmount    decimal.Decimal `json:"raw_amount"`
	PricedAmount decimal.Decimal `json:"priced_amount"`
	EntryCount   int             `json:"entry_count"`
	Currency     string          `json:"currency"`

	PricingRuleID *string          `json:"pricing_rule_id,omitempty"`
	DiscountRate  *decimal.Decimal `json:"discount_rate,omitempty"`

	types.BaseModel
}

func (li *InvoiceLineItem) Validate() error {
	if li.SkuGroupID == "" {
		return ierr.NewError("invoice line item sku group id is required").
			Mark(ierr.ErrValidation)
	}
	if li.EntryCount < 0 {
		return ierr.NewError("invoice line item entry count must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if li.Currency == "" {
		return ierr.NewError("invoice line item currency is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

package analytics

import (
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// MonthlySummary is one (customer, sku group, provider) rollup for a
// month. Rebuilt idempotently per run.
type MonthlySummary struct {
	ID           string             `json:"id"`
	RunID        string             `json:"run_id"`
	InvoiceMonth types.BillingMonth `json:"invoice_month"`
	CustomerID   string             `json:"customer_id"`
	SkuGroupID   string             `json:"sku_group_id"`
	Provider     types.Provider     `json:"provider"`

	RawCost    decimal.Decimal `json:"raw_cost"`
	PricedCost decimal.Decimal `json:"priced_cost"`
	ItemCount  int             `json:"item_count"`
	Currency   string          `json:"currency"`
	types.BaseModel
}

// CustomerSnapshot is one customer's monthly invoice rollup with
// month-over-month growth computed against the prior month's snapshot.
type CustomerSnapshot struct {
	ID           string             `json:"id"`
	RunID        string             `json:"run_id"`
	InvoiceMonth types.BillingMonth `json:"invoice_month"`
	CustomerID   string             `json:"customer_id"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`

	// GrowthPct is nil when no prior-month snapshot exists or the prior
	// total was zero.
	GrowthPct *decimal.Decimal `json:"growth_pct,omitempty"`
	types.BaseModel
}

// ProviderSnapshot is one provider's monthly rollup with a margin
// estimate (priced vs raw).
type ProviderSnapshot struct {
	ID           string             `json:"id"`
	RunID        string             `json:"run_id"`
	InvoiceMonth types.BillingMonth `json:"invoice_month"`
	Provider     types.Provider     `json:"provider"`

	RawCost    decimal.Decimal `json:"raw_cost"`
	PricedCost decimal.Decimal `json:"priced_cost"`

	// MarginPct is nil when raw cost is zero.
	MarginPct *decimal.Decimal `json:"margin_pct,omitempty"`
	types.BaseModel
}

package costdata

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem is one normalized unit of provider usage and cost. Line items
// are immutable once ingested; corrections arrive as a re-ingestion under
// a new batch.
type LineItem struct {
	ID       string         `json:"id"`
	Provider types.Provider `json:"provider"`

	// Account hierarchy as reported by the vendor.
	AccountID    string `json:"account_id"`
	SubaccountID string `json:"subaccount_id,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	ProjectID string `json:"project_id,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
	ProductID string `json:"product_id"`
	MeterID   string `json:"meter_id,omitempty"`

	UsageAmount decimal.Decimal `json:"usage_amount"`
	UsageUnit   string          `json:"usage_unit,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Currency    string          `json:"currency"`

	UsageStart time.Time `json:"usage_start"`
	UsageEnd   time.Time `json:"usage_end"`

	InvoiceMonth types.BillingMonth `json:"invoice_month"`
	BatchID      string             `json:"batch_id"`
	types.BaseModel
}

func (li *LineItem) Validate() error {
	if !li.Provider.Validate() {
		return ierr.NewErrorf("invalid provider %s", li.Provider).
			Mark(ierr.ErrValidation)
	}
	if li.AccountID == "" {
		return ierr.NewError("line item account id is required").
			Mark(ierr.ErrValidation)
	}
	if li.ProductID == "" {
		return ierr.NewError("line item product id is required").
			Mark(ierr.ErrValidation)
	}
	if li.Currency == "" {
		return ierr.NewError("line item currency is required").
			Mark(ierr.ErrValidation)
	}
	if li.UsageEnd.Before(li.UsageStart) {
		return ierr.NewError("line item usage_end precedes usage_start").
			Mark(ierr.ErrValidation)
	}
	if err := li.InvoiceMonth.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice month must be YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	return nil
}

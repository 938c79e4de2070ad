package invoice

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is one customer's bill for one month within one run.
// Subtotal is the priced amount before credits; Total = Subtotal -
// CreditAmount. Once LockedAt is set the invoice is export-gated and
// effectively immutable; the commercial status moves independently.
type Invoice struct {
	ID           string             `json:"id"`
	RunID        string             `json:"run_id"`
	CustomerID   string             `json:"customer_id"`
	InvoiceMonth types.BillingMonth `json:"invoice_month"`

	// InvoiceNumber is globally unique, format PREFIX-YYYYMM-SLUG-NNNN.
	InvoiceNumber string `json:"invoice_number"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	Total        decimal.Decimal `json:"total"`

	// Currency is the single line item currency, or types.CurrencyMixed.
	Currency string `json:"currency"`

	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	LockedAt      *time.Time          `json:"locked_at,omitempty"`

	LineItems []*InvoiceLineItem `json:"line_items,omitempty"`
	types.BaseModel
}

func (i *Invoice) Validate() error {
	if i.CustomerID == "" {
		return ierr.NewError("invoice customer id is required").
			Mark(ierr.ErrValidation)
	}
	if i.InvoiceNumber == "" {
		return ierr.NewError("invoice number is required").
			Mark(ierr.ErrValidation)
	}
	if i.Subtotal.IsNegative() {
		return ierr.NewError("invoice subtotal must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if i.CreditAmount.IsNegative() {
		return ierr.NewError("invoice credit amount must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if i.CreditAmount.GreaterThan(i.Subtotal) {
		return ierr.NewError("invoice credit amount exceeds subtotal").
			Mark(ierr.ErrValidation)
	}
	if !i.Total.Equal(i.Subtotal.Sub(i.CreditAmount)) {
		return ierr.NewError("invoice total must equal subtotal minus credit").
			Mark(ierr.ErrValidation)
	}
	if !i.InvoiceStatus.Validate() {
		return ierr.NewErrorf("invalid invoice status %s", i.InvoiceStatus).
			Mark(ierr.ErrValidation)
	}
	for _, item := range i.LineItems {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Locked reports whether the invoice has been gated for export.
func (i *Invoice) Locked() bool {
	return i.LockedAt != nil
}

package dto

import (
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// ListInvoicesRequest filters the invoice listing. All fields are
// optional and combine with AND semantics.
type ListInvoicesRequest struct {
	RunID      string `form:"run_id"`
	CustomerID string `form:"customer_id"`
	Month      string `form:"month"`
}

func (r *ListInvoicesRequest) ToFilter() (*invoice.Filter, error) {
	f := &invoice.Filter{
		RunID:      r.RunID,
		CustomerID: r.CustomerID,
	}
	if r.Month != "" {
		month, err := types.ParseBillingMonth(r.Month)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Month must be YYYY-MM").
				Mark(ierr.ErrValidation)
		}
		f.InvoiceMonth = month
	}
	return f, nil
}

// ListInvoicesResponse wraps an invoice listing.
type ListInvoicesResponse struct {
	Items []*invoice.Invoice `json:"items"`
	Total int                `json:"total"`
}

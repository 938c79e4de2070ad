package customer

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// Customer represents a reseller customer that receives invoices.
type Customer struct {
	ID string `json:"id"`
	// ExternalID is the operator-facing identifier (CRM id or short code);
	// the invoice-number slug is derived from it.
	ExternalID      string               `json:"external_id"`
	Name            string               `json:"name"`
	Currency        string               `json:"currency"`
	PaymentTermsDays int                 `json:"payment_terms_days"`
	CustomerStatus  types.CustomerStatus `json:"customer_status"`
	types.BaseModel
}

func (c *Customer) Validate() error {
	if c.ExternalID == "" {
		return ierr.NewError("customer external_id is required").
			WithHint("Customer external id is required").
			Mark(ierr.ErrValidation)
	}
	if c.Name == "" {
		return ierr.NewError("customer name is required").
			WithHint("Customer name is required").
			Mark(ierr.ErrValidation)
	}
	if !c.CustomerStatus.Validate() {
		return ierr.NewErrorf("invalid customer status %s", c.CustomerStatus).
			WithHint("Customer status must be ACTIVE, SUSPENDED or TERMINATED").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Billable reports whether the customer should be considered by an invoice
// run at all.
func (c *Customer) Billable() bool {
	return c.CustomerStatus == types.CustomerStatusActive &&
		c.Status == types.StatusPublished
}

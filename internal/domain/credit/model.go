package credit

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// Credit is a customer-scoped prepaid balance burned down against invoice
// totals. RemainingAmount only moves through ledger entries.
type Credit struct {
	ID              string           `json:"id"`
	CustomerID      string           `json:"customer_id"`
	Type            types.CreditType `json:"type"`
	Name            string           `json:"name,omitempty"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Currency        string           `json:"currency"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidTo         *time.Time       `json:"valid_to,omitempty"`
	CarryOver       bool             `json:"carry_over"`
	types.BaseModel
}

func (c *Credit) Validate() error {
	if c.CustomerID == "" {
		return ierr.NewError("credit customer id is required").
			Mark(ierr.ErrValidation)
	}
	if c.TotalAmount.IsNegative() {
		return ierr.NewError("credit total amount must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if c.RemainingAmount.IsNegative() {
		return ierr.NewError("credit remaining amount must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if c.RemainingAmount.GreaterThan(c.TotalAmount) {
		return ierr.NewError("credit remaining amount exceeds total").
			Mark(ierr.ErrValidation)
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom) {
		return ierr.NewError("credit validity window is inverted").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UsableAt reports whether the credit can be applied at the given time:
// published, inside its validity window, with balance remaining.
func (c *Credit) UsableAt(at time.Time) bool {
	if c.Status != types.StatusPublished {
		return false
	}
	if c.RemainingAmount.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if c.ValidFrom != nil && at.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidTo != nil && at.After(*c.ValidTo) {
		return false
	}
	return true
}

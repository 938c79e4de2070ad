package pricing

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// PricingList is a customer's set of pricing rules. At most one list per
// customer is ACTIVE; the pricing engine only reads the active list.
type PricingList struct {
	ID         string                  `json:"id"`
	CustomerID string                  `json:"customer_id"`
	Name       string                  `json:"name"`
	ListStatus types.PricingListStatus `json:"list_status"`
	types.BaseModel
}

func (l *PricingList) Validate() error {
	if l.CustomerID == "" {
		return ierr.NewError("pricing list customer id is required").
			Mark(ierr.ErrValidation)
	}
	switch l.ListStatus {
	case types.PricingListStatusActive, types.PricingListStatusDraft, types.PricingListStatusArchived:
	default:
		return ierr.NewErrorf("invalid pricing list status %s", l.ListStatus).
			Mark(ierr.ErrValidation)
	}
	return nil
}

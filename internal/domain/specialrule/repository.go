package specialrule

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/types"
)

// Repository defines the persistence boundary for special rules.
// Implementations must call Validate before persisting so the engines only
// consume well-formed rule variants.
type Repository interface {
	Create(ctx context.Context, r *SpecialRule) error
	Get(ctx context.Context, id string) (*SpecialRule, error)
	Update(ctx context.Context, r *SpecialRule) error
	Delete(ctx context.Context, id string) error

	// ListEnabledForMonth returns the customer's enabled rules whose
	// effective window overlaps the month.
	ListEnabledForMonth(ctx context.Context, customerID string, month types.BillingMonth) ([]*SpecialRule, error)

	// ListByCustomer returns all of a customer's rules.
	ListByCustomer(ctx context.Context, customerID string) ([]*SpecialRule, error)
}

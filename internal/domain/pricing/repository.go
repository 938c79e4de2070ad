package pricing

import "context"

// Repository defines the persistence boundary for pricing lists and rules.
// Implementations validate rules before persisting.
type Repository interface {
	CreateList(ctx context.Context, l *PricingList) error
	GetList(ctx context.Context, id string) (*PricingList, error)
	// GetActiveList returns the customer's single ACTIVE list, or
	// ErrNotFound when the customer has none.
	GetActiveList(ctx context.Context, customerID string) (*PricingList, error)
	UpdateList(ctx context.Context, l *PricingList) error

	CreateRule(ctx context.Context, r *PricingRule) error
	GetRule(ctx context.Context, id string) (*PricingRule, error)
	// ListRules returns all rules of a pricing list.
	ListRules(ctx context.Context, listID string) ([]*PricingRule, error)
	DeleteRule(ctx context.Context, id string) error
}

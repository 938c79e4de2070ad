package project

import "context"

// Repository defines the persistence boundary for projects.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	GetByProviderAccountID(ctx context.Context, accountID string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
}

// BindingRepository defines the persistence boundary for
// customer-project bindings.
type BindingRepository interface {
	Create(ctx context.Context, b *CustomerProjectBinding) error
	Get(ctx context.Context, id string) (*CustomerProjectBinding, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*CustomerProjectBinding, error)
	ListByProject(ctx context.Context, projectID string) ([]*CustomerProjectBinding, error)
}

package customer

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/types"
)

// Repository defines the persistence boundary for customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	GetByExternalID(ctx context.Context, externalID string) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id string) error

	// List returns all customers, optionally filtered by status.
	List(ctx context.Context, status types.CustomerStatus) ([]*Customer, error)
	// ListActive returns customers eligible for invoicing.
	ListActive(ctx context.Context) ([]*Customer, error)
}

package invoicerun

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/types"
)

// Repository defines the persistence boundary for invoice runs.
type Repository interface {
	Create(ctx context.Context, r *InvoiceRun) error
	Get(ctx context.Context, id string) (*InvoiceRun, error)
	Update(ctx context.Context, r *InvoiceRun) error

	// ListByMonth returns a month's runs, newest first.
	ListByMonth(ctx context.Context, month types.BillingMonth) ([]*InvoiceRun, error)

	// GetBySourceKey resolves the run idempotency key within a month.
	GetBySourceKey(ctx context.Context, month types.BillingMonth, key types.SourceKey) (*InvoiceRun, error)
}

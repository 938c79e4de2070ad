package analytics

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/types"
)

// Repository defines the persistence boundary for analytics facts.
// DeleteByRunID before re-insert is what makes rebuilds idempotent.
type Repository interface {
	// DeleteByRunID removes every fact row produced by a run.
	DeleteByRunID(ctx context.Context, runID string) error

	CreateMonthlySummaries(ctx context.Context, rows []*MonthlySummary) error
	CreateCustomerSnapshots(ctx context.Context, rows []*CustomerSnapshot) error
	CreateProviderSnapshots(ctx context.Context, rows []*ProviderSnapshot) error

	ListMonthlySummaries(ctx context.Context, month types.BillingMonth) ([]*MonthlySummary, error)
	ListCustomerSnapshots(ctx context.Context, month types.BillingMonth) ([]*CustomerSnapshot, error)
	// GetCustomerSnapshot returns a customer's snapshot for a month, used
	// for month-over-month growth. ErrNotFound when absent.
	GetCustomerSnapshot(ctx context.Context, customerID string, month types.BillingMonth) (*CustomerSnapshot, error)
	ListProviderSnapshots(ctx context.Context, month types.BillingMonth) ([]*ProviderSnapshot, error)
}

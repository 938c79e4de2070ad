package costdata

import (
	"context"
	"time"

	"github.com/cloudbill/cloudbill/internal/types"
)

// LineItemFilter narrows line item queries. Zero values are wildcards.
type LineItemFilter struct {
	InvoiceMonth types.BillingMonth
	Provider     types.Provider
	BatchID      string
	AccountIDs   []string
	UsageFrom    *time.Time
	UsageTo      *time.Time
}

// Repository defines the persistence boundary for raw cost data.
type Repository interface {
	// CreateBatch persists a batch together with its line items.
	CreateBatch(ctx context.Context, batch *IngestionBatch, items []*LineItem) error

	// GetBatch retrieves a batch by id.
	GetBatch(ctx context.Context, id string) (*IngestionBatch, error)

	// GetBatchByChecksum resolves the (provider, sourceType, month,
	// checksum) uniqueness tuple. Returns ErrNotFound when absent.
	GetBatchByChecksum(ctx context.Context, provider types.Provider, sourceType types.SourceType, month types.BillingMonth, checksum string) (*IngestionBatch, error)

	// ListBatches returns batches for a month, newest first.
	ListBatches(ctx context.Context, month types.BillingMonth) ([]*IngestionBatch, error)

	// ListLineItems returns line items matching the filter.
	ListLineItems(ctx context.Context, filter *LineItemFilter) ([]*LineItem, error)

	// CountLineItems returns the number of line items matching the filter.
	CountLineItems(ctx context.Context, filter *LineItemFilter) (int, error)
}

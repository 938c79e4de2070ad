package configsnapshot

import "context"

// Repository defines the persistence boundary for config snapshots.
type Repository interface {
	Create(ctx context.Context, s *ConfigSnapshot) error
	Get(ctx context.Context, id string) (*ConfigSnapshot, error)
	GetByInvoice(ctx context.Context, invoiceID string) (*ConfigSnapshot, error)
	ListByRun(ctx context.Context, runID string) ([]*ConfigSnapshot, error)
}

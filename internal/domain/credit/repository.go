package credit

import (
	"context"
	"time"
)

// Repository defines the persistence boundary for credits and their
// append-only ledger.
type Repository interface {
	Create(ctx context.Context, c *Credit) error
	Get(ctx context.Context, id string) (*Credit, error)
	Update(ctx context.Context, c *Credit) error

	// ListUsable returns the customer's credits usable at the given time,
	// ordered by burn-down precedence: earliest ValidTo first (nil last),
	// then oldest CreatedAt. The credit engine relies on this order.
	ListUsable(ctx context.Context, customerID string, at time.Time) ([]*Credit, error)

	ListByCustomer(ctx context.Context, customerID string) ([]*Credit, error)

	// ApplyUsage atomically decrements the credit balance and appends the
	// USAGE ledger entry. Implementations must reject an entry whose
	// amount exceeds the credit's remaining balance.
	ApplyUsage(ctx context.Context, creditID string, entry *LedgerEntry) error

	// AppendLedgerEntry appends a non-usage movement (allocation,
	// adjustment, expiry) and moves the balance accordingly.
	AppendLedgerEntry(ctx context.Context, entry *LedgerEntry) error

	// ListLedger returns a credit's entries oldest first.
	ListLedger(ctx context.Context, creditID string) ([]*LedgerEntry, error)

	// ListLedgerByInvoice returns the usage entries recorded for one
	// invoice across all credits.
	ListLedgerByInvoice(ctx context.Context, invoiceID string) ([]*LedgerEntry, error)
}

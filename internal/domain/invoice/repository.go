package invoice

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/types"
)

// Filter narrows invoice queries. Zero values are wildcards.
type Filter struct {
	RunID        string
	CustomerID   string
	InvoiceMonth types.BillingMonth
}

// Repository defines the persistence boundary for invoices.
//
// CreateWithLineItems persists the invoice and its line items atomically
// and enforces the global invoice-number uniqueness constraint: a
// duplicate number surfaces as ErrAlreadyExists so the orchestrator can
// retry allocation. Number allocation and creation therefore share one
// transaction scope.
type Repository interface {
	CreateWithLineItems(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, filter *Filter) ([]*Invoice, error)

	// CountForCustomerMonth counts existing invoices for the (customer,
	// month) pair; the next sequence number is count+1.
	CountForCustomerMonth(ctx context.Context, customerID string, month types.BillingMonth) (int, error)

	// ExistsByNumber checks a candidate number before creation.
	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// Update mutates invoice totals and status. Implementations reject
	// updates to locked invoices with ErrInvalidOperation.
	Update(ctx context.Context, inv *Invoice) error
}

package service

import (
	"context"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/configsnapshot"
	"github.com/cloudbill/cloudbill/internal/domain/credit"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
)

// InvoiceExport is the full read model for one invoice: the header, the
// billed customer, the credit ledger entries applied to it, and the
// config snapshot captured when it was generated.
type InvoiceExport struct {
	Invoice       *invoice.Invoice               `json:"invoice"`
	Customer      *customer.Customer             `json:"customer"`
	CreditEntries []*credit.LedgerEntry          `json:"credit_entries,omitempty"`
	Snapshot      *configsnapshot.ConfigSnapshot `json:"snapshot,omitempty"`
}

type InvoiceService interface {
	Get(ctx context.Context, id string) (*invoice.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error)
	List(ctx context.Context, filter *invoice.Filter) ([]*invoice.Invoice, error)
	Export(ctx context.Context, id string) (*InvoiceExport, error)

	// Lock gates the invoice for export. Locked invoices reject any
	// further mutation. Locking twice is an error.
	Lock(ctx context.Context, id string) (*invoice.Invoice, error)
}

type invoiceService struct {
	ServiceParams
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.InvoiceRepo.Get(ctx, id)
}

func (s *invoiceService) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return s.InvoiceRepo.GetByNumber(ctx, number)
}

func (s *invoiceService) List(ctx context.Context, filter *invoice.Filter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = &invoice.Filter{}
	}
	return s.InvoiceRepo.List(ctx, filter)
}

func (s *invoiceService) Export(ctx context.Context, id string) (*InvoiceExport, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cust, err := s.CustomerRepo.Get(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}

	export := &InvoiceExport{Invoice: inv, Customer: cust}

	entries, err := s.CreditRepo.ListLedgerByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	export.CreditEntries = entries

	snap, err := s.ConfigSnapshotRepo.GetByInvoice(ctx, inv.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if err == nil {
		export.Snapshot = snap
	}
	return export, nil
}

func (s *invoiceService) Lock(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Locked() {
		return nil, ierr.NewErrorf("invoice %s is already locked", inv.InvoiceNumber).
			WithHint("Locked invoices cannot be modified").
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	inv.LockedAt = &now
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice locked",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber)
	return inv, nil
}

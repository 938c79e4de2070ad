package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository. The invoice-number
// uniqueness check and the insert run under one lock, mirroring the
// transaction scope a SQL backend gives the allocation loop.
type InMemoryInvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]*invoice.Invoice
	byNumber map[string]string
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		invoices: make(map[string]*invoice.Invoice),
		byNumber: make(map[string]string),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	if inv.LockedAt != nil {
		locked := *inv.LockedAt
		out.LockedAt = &locked
	}
	out.LineItems = lo.Map(inv.LineItems, func(li *invoice.InvoiceLineItem, _ int) *invoice.InvoiceLineItem {
		return copyInvoiceLineItem(li)
	})
	return &out
}

func copyInvoiceLineItem(li *invoice.InvoiceLineItem) *invoice.InvoiceLineItem {
	if li == nil {
		return nil
	}
	out := *li
	if li.PricingRuleID != nil {
		id := *li.PricingRuleID
		out.PricingRuleID = &id
	}
	if li.DiscountRate != nil {
		rate := *li.DiscountRate
		out.DiscountRate = &rate
	}
	return &out
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID]; exists {
		return ierr.NewErrorf("invoice %s already exists", inv.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	if _, taken := s.byNumber[inv.InvoiceNumber]; taken {
		return ierr.NewErrorf("invoice number %s already exists", inv.InvoiceNumber).
			Mark(ierr.ErrAlreadyExists)
	}

	stored := copyInvoice(inv)
	for _, li := range stored.LineItems {
		li.InvoiceID = stored.ID
	}
	s.invoices[stored.ID] = stored
	s.byNumber[stored.InvoiceNumber] = stored.ID
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, exists := s.invoices[id]
	if !exists {
		return nil, ierr.NewErrorf("invoice %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byNumber[number]
	if !exists {
		return nil, ierr.NewErrorf("invoice number %s not found", number).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(s.invoices[id]), nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *invoice.Filter) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, inv := range s.invoices {
		if matchesInvoiceFilter(inv, filter) {
			result = append(result, copyInvoice(inv))
		}
	}
	slices.SortFunc(result, func(a, b *invoice.Invoice) int {
		return strings.Compare(a.InvoiceNumber, b.InvoiceNumber)
	})
	return result, nil
}

func matchesInvoiceFilter(inv *invoice.Invoice, filter *invoice.Filter) bool {
	if filter == nil {
		return true
	}
	if filter.RunID != "" && inv.RunID != filter.RunID {
		return false
	}
	if filter.CustomerID != "" && inv.CustomerID != filter.CustomerID {
		return false
	}
	if filter.InvoiceMonth != "" && inv.InvoiceMonth != filter.InvoiceMonth {
		return false
	}
	return true
}

func (s *InMemoryInvoiceStore) CountForCustomerMonth(ctx context.Context, customerID string, month types.BillingMonth) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, inv := range s.invoices {
		if inv.CustomerID == customerID && inv.InvoiceMonth == month {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryInvoiceStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.byNumber[number]
	return exists, nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.invoices[inv.ID]
	if !exists {
		return ierr.NewErrorf("invoice %s not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	if existing.Locked() {
		return ierr.NewErrorf("invoice %s is locked", inv.ID).
			WithHint("Locked invoices cannot be modified").
			Mark(ierr.ErrInvalidOperation)
	}
	if existing.InvoiceNumber != inv.InvoiceNumber {
		return ierr.NewError("invoice number cannot change").
			Mark(ierr.ErrInvalidOperation)
	}

	s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

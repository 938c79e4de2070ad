package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/credit"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCreditStore implements credit.Repository. Balance movements and
// ledger appends share one lock so ApplyUsage stays atomic.
type InMemoryCreditStore struct {
	mu      sync.RWMutex
	credits map[string]*credit.Credit
	ledger  []*credit.LedgerEntry
}

func NewInMemoryCreditStore() *InMemoryCreditStore {
	return &InMemoryCreditStore{
		credits: make(map[string]*credit.Credit),
	}
}

func copyCredit(c *credit.Credit) *credit.Credit {
	if c == nil {
		return nil
	}
	out := *c
	if c.ValidFrom != nil {
		from := *c.ValidFrom
		out.ValidFrom = &from
	}
	if c.ValidTo != nil {
		to := *c.ValidTo
		out.ValidTo = &to
	}
	return &out
}

func copyLedgerEntry(e *credit.LedgerEntry) *credit.LedgerEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.InvoiceID != nil {
		id := *e.InvoiceID
		out.InvoiceID = &id
	}
	return &out
}

func (s *InMemoryCreditStore) Create(ctx context.Context, c *credit.Credit) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credits[c.ID]; exists {
		return ierr.NewErrorf("credit %s already exists", c.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	s.credits[c.ID] = copyCredit(c)
	return nil
}

func (s *InMemoryCreditStore) Get(ctx context.Context, id string) (*credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.credits[id]
	if !exists {
		return nil, ierr.NewErrorf("credit %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyCredit(c), nil
}

func (s *InMemoryCreditStore) Update(ctx context.Context, c *credit.Credit) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credits[c.ID]; !exists {
		return ierr.NewErrorf("credit %s not found", c.ID).
			Mark(ierr.ErrNotFound)
	}
	s.credits[c.ID] = copyCredit(c)
	return nil
}

// ListUsable returns usable credits in burn-down order: earliest ValidTo
// first with nil expiries last, then oldest CreatedAt.
func (s *InMemoryCreditStore) ListUsable(ctx context.Context, customerID string, at time.Time) ([]*credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*credit.Credit
	for _, c := range s.credits {
		if c.CustomerID == customerID && c.UsableAt(at) {
			result = append(result, copyCredit(c))
		}
	}
	slices.SortFunc(result, func(a, b *credit.Credit) int {
		switch {
		case a.ValidTo == nil && b.ValidTo == nil:
		case a.ValidTo == nil:
			return 1
		case b.ValidTo == nil:
			return -1
		case !a.ValidTo.Equal(*b.ValidTo):
			return a.ValidTo.Compare(*b.ValidTo)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *InMemoryCreditStore) ListByCustomer(ctx context.Context, customerID string) ([]*credit.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*credit.Credit
	for _, c := range s.credits {
		if c.CustomerID == customerID {
			result = append(result, copyCredit(c))
		}
	}
	slices.SortFunc(result, func(a, b *credit.Credit) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return result, nil
}

func (s *InMemoryCreditStore) ApplyUsage(ctx context.Context, creditID string, entry *credit.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.credits[creditID]
	if !exists {
		return ierr.NewErrorf("credit %s not found", creditID).
			Mark(ierr.ErrNotFound)
	}
	if entry.Amount.GreaterThan(c.RemainingAmount) {
		return ierr.NewErrorf("usage %s exceeds remaining balance %s",
			entry.Amount, c.RemainingAmount).
			Mark(ierr.ErrInvalidOperation)
	}

	c.RemainingAmount = c.RemainingAmount.Sub(entry.Amount)
	if !entry.BalanceAfter.Equal(c.RemainingAmount) {
		c.RemainingAmount = c.RemainingAmount.Add(entry.Amount)
		return ierr.NewError("ledger entry balance_after does not match credit balance").
			Mark(ierr.ErrInvalidOperation)
	}
	s.ledger = append(s.ledger, copyLedgerEntry(entry))
	return nil
}

func (s *InMemoryCreditStore) AppendLedgerEntry(ctx context.Context, entry *credit.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.credits[entry.CreditID]
	if !exists {
		return ierr.NewErrorf("credit %s not found", entry.CreditID).
			Mark(ierr.ErrNotFound)
	}

	next := c.RemainingAmount.Add(entry.Delta())
	if next.IsNegative() {
		return ierr.NewErrorf("entry would drive credit %s negative", entry.CreditID).
			Mark(ierr.ErrInvalidOperation)
	}
	if next.GreaterThan(c.TotalAmount) {
		return ierr.NewErrorf("entry would exceed credit %s total", entry.CreditID).
			Mark(ierr.ErrInvalidOperation)
	}

	c.RemainingAmount = next
	s.ledger = append(s.ledger, copyLedgerEntry(entry))
	return nil
}

func (s *InMemoryCreditStore) ListLedger(ctx context.Context, creditID string) ([]*credit.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := lo.Filter(s.ledger, func(e *credit.LedgerEntry, _ int) bool {
		return e.CreditID == creditID
	})
	return lo.Map(entries, func(e *credit.LedgerEntry, _ int) *credit.LedgerEntry {
		return copyLedgerEntry(e)
	}), nil
}

func (s *InMemoryCreditStore) ListLedgerByInvoice(ctx context.Context, invoiceID string) ([]*credit.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := lo.Filter(s.ledger, func(e *credit.LedgerEntry, _ int) bool {
		return e.InvoiceID != nil && *e.InvoiceID == invoiceID
	})
	return lo.Map(entries, func(e *credit.LedgerEntry, _ int) *credit.LedgerEntry {
		return copyLedgerEntry(e)
	}), nil
}

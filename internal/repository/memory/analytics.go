package memory

import (
	"context"
	"sync"

	"github.com/cloudbill/cloudbill/internal/domain/analytics"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/samber/lo"
)

// InMemoryAnalyticsStore implements analytics.Repository. All three fact
// tables share one lock so DeleteByRunID plus re-insert reads as a single
// rebuild to concurrent readers.
type InMemoryAnalyticsStore struct {
	mu        sync.RWMutex
	summaries map[string]*analytics.MonthlySummary
	customers map[string]*analytics.CustomerSnapshot
	providers map[string]*analytics.ProviderSnapshot
}

func NewInMemoryAnalyticsStore() *InMemoryAnalyticsStore {
	return &InMemoryAnalyticsStore{
		summaries: make(map[string]*analytics.MonthlySummary),
		customers: make(map[string]*analytics.CustomerSnapshot),
		providers: make(map[string]*analytics.ProviderSnapshot),
	}
}

func copyMonthlySummary(m *analytics.MonthlySummary) *analytics.MonthlySummary {
	if m == nil {
		return nil
	}
	out := *m
	return &out
}

func copyCustomerSnapshot(c *analytics.CustomerSnapshot) *analytics.CustomerSnapshot {
	if c == nil {
		return nil
	}
	out := *c
	if c.GrowthPct != nil {
		growth := *c.GrowthPct
		out.GrowthPct = &growth
	}
	return &out
}

func copyProviderSnapshot(p *analytics.ProviderSnapshot) *analytics.ProviderSnapshot {
	if p == nil {
		return nil
	}
	out := *p
	if p.MarginPct != nil {
		margin := *p.MarginPct
		out.MarginPct = &margin
	}
	return &out
}

func (s *InMemoryAnalyticsStore) DeleteByRunID(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.summaries {
		if m.RunID == runID {
			delete(s.summaries, id)
		}
	}
	for id, c := range s.customers {
		if c.RunID == runID {
			delete(s.customers, id)
		}
	}
	for id, p := range s.providers {
		if p.RunID == runID {
			delete(s.providers, id)
		}
	}
	return nil
}

func (s *InMemoryAnalyticsStore) CreateMonthlySummaries(ctx context.Context, rows []*analytics.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if _, exists := s.summaries[row.ID]; exists {
			return ierr.NewErrorf("monthly summary %s already exists", row.ID).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	for _, row := range rows {
		s.summaries[row.ID] = copyMonthlySummary(row)
	}
	return nil
}

func (s *InMemoryAnalyticsStore) CreateCustomerSnapshots(ctx context.Context, rows []*analytics.CustomerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if _, exists := s.customers[row.ID]; exists {
			return ierr.NewErrorf("customer snapshot %s already exists", row.ID).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	for _, row := range rows {
		s.customers[row.ID] = copyCustomerSnapshot(row)
	}
	return nil
}

func (s *InMemoryAnalyticsStore) CreateProviderSnapshots(ctx context.Context, rows []*analytics.ProviderSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		if _, exists := s.providers[row.ID]; exists {
			return ierr.NewErrorf("provider snapshot %s already exists", row.ID).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	for _, row := range rows {
		s.providers[row.ID] = copyProviderSnapshot(row)
	}
	return nil
}

func (s *InMemoryAnalyticsStore) ListMonthlySummaries(ctx context.Context, month types.BillingMonth) ([]*analytics.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := lo.Filter(lo.Values(s.summaries), func(m *analytics.MonthlySummary, _ int) bool {
		return m.InvoiceMonth == month
	})
	return lo.Map(rows, func(m *analytics.MonthlySummary, _ int) *analytics.MonthlySummary {
		return copyMonthlySummary(m)
	}), nil
}

func (s *InMemoryAnalyticsStore) ListCustomerSnapshots(ctx context.Context, month types.BillingMonth) ([]*analytics.CustomerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := lo.Filter(lo.Values(s.customers), func(c *analytics.CustomerSnapshot, _ int) bool {
		return c.InvoiceMonth == month
	})
	return lo.Map(rows, func(c *analytics.CustomerSnapshot, _ int) *analytics.CustomerSnapshot {
		return copyCustomerSnapshot(c)
	}), nil
}

func (s *InMemoryAnalyticsStore) GetCustomerSnapshot(ctx context.Context, customerID string, month types.BillingMonth) (*analytics.CustomerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.CustomerID == customerID && c.InvoiceMonth == month {
			return copyCustomerSnapshot(c), nil
		}
	}
	return nil, ierr.NewErrorf("no snapshot for customer %s in %s", customerID, month).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryAnalyticsStore) ListProviderSnapshots(ctx context.Context, month types.BillingMonth) ([]*analytics.ProviderSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := lo.Filter(lo.Values(s.providers), func(p *analytics.ProviderSnapshot, _ int) bool {
		return p.InvoiceMonth == month
	})
	return lo.Map(rows, func(p *analytics.ProviderSnapshot, _ int) *analytics.ProviderSnapshot {
		return copyProviderSnapshot(p)
	}), nil
}

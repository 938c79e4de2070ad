package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/samber/lo"
)

// InMemoryCostDataStore implements costdata.Repository. Batches and their
// line items are written under one lock so CreateBatch stays atomic.
type InMemoryCostDataStore struct {
	mu      sync.RWMutex
	batches map[string]*costdata.IngestionBatch
	items   []*costdata.LineItem
}

func NewInMemoryCostDataStore() *InMemoryCostDataStore {
	return &InMemoryCostDataStore{
		batches: make(map[string]*costdata.IngestionBatch),
	}
}

func copyBatch(b *costdata.IngestionBatch) *costdata.IngestionBatch {
	if b == nil {
		return nil
	}
	out := *b
	return &out
}

func copyLineItem(li *costdata.LineItem) *costdata.LineItem {
	if li == nil {
		return nil
	}
	out := *li
	return &out
}

func (s *InMemoryCostDataStore) CreateBatch(ctx context.Context, batch *costdata.IngestionBatch, items []*costdata.LineItem) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	for _, li := range items {
		if err := li.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[batch.ID]; exists {
		return ierr.NewErrorf("batch %s already exists", batch.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	for _, b := range s.batches {
		if b.Provider == batch.Provider &&
			b.SourceType == batch.SourceType &&
			b.InvoiceMonth == batch.InvoiceMonth &&
			b.Checksum == batch.Checksum {
			return ierr.NewErrorf("batch with checksum %s already ingested", batch.Checksum).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	s.batches[batch.ID] = copyBatch(batch)
	for _, li := range items {
		item := copyLineItem(li)
		item.BatchID = batch.ID
		s.items = append(s.items, item)
	}
	return nil
}

func (s *InMemoryCostDataStore) GetBatch(ctx context.Context, id string) (*costdata.IngestionBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.batches[id]
	if !exists {
		return nil, ierr.NewErrorf("batch %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyBatch(b), nil
}

func (s *InMemoryCostDataStore) GetBatchByChecksum(ctx context.Context, provider types.Provider, sourceType types.SourceType, month types.BillingMonth, checksum string) (*costdata.IngestionBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.batches {
		if b.Provider == provider &&
			b.SourceType == sourceType &&
			b.InvoiceMonth == month &&
			b.Checksum == checksum {
			return copyBatch(b), nil
		}
	}
	return nil, ierr.NewErrorf("no batch with checksum %s", checksum).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCostDataStore) ListBatches(ctx context.Context, month types.BillingMonth) ([]*costdata.IngestionBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := lo.Filter(lo.Values(s.batches), func(b *costdata.IngestionBatch, _ int) bool {
		return b.InvoiceMonth == month
	})
	slices.SortFunc(batches, func(a, b *costdata.IngestionBatch) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return lo.Map(batches, func(b *costdata.IngestionBatch, _ int) *costdata.IngestionBatch {
		return copyBatch(b)
	}), nil
}

func (s *InMemoryCostDataStore) ListLineItems(ctx context.Context, filter *costdata.LineItemFilter) ([]*costdata.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*costdata.LineItem
	for _, li := range s.items {
		if matchesLineItemFilter(li, filter) {
			result = append(result, copyLineItem(li))
		}
	}
	slices.SortFunc(result, func(a, b *costdata.LineItem) int {
		return a.UsageStart.Compare(b.UsageStart)
	})
	return result, nil
}

func (s *InMemoryCostDataStore) CountLineItems(ctx context.Context, filter *costdata.LineItemFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, li := range s.items {
		if matchesLineItemFilter(li, filter) {
			count++
		}
	}
	return count, nil
}

func matchesLineItemFilter(li *costdata.LineItem, filter *costdata.LineItemFilter) bool {
	if filter == nil {
		return true
	}
	if filter.InvoiceMonth != "" && li.InvoiceMonth != filter.InvoiceMonth {
		return false
	}
	if filter.Provider != "" && li.Provider != filter.Provider {
		return false
	}
	if filter.BatchID != "" && li.BatchID != filter.BatchID {
		return false
	}
	if len(filter.AccountIDs) > 0 && !lo.Contains(filter.AccountIDs, li.AccountID) {
		return false
	}
	if filter.UsageFrom != nil && li.UsageStart.Before(*filter.UsageFrom) {
		return false
	}
	if filter.UsageTo != nil && !li.UsageStart.Before(*filter.UsageTo) {
		return false
	}
	return true
}

package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/cloudbill/cloudbill/internal/domain/invoicerun"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceRunStore implements invoicerun.Repository
type InMemoryInvoiceRunStore struct {
	*InMemoryStore[*invoicerun.InvoiceRun]
}

func NewInMemoryInvoiceRunStore() *InMemoryInvoiceRunStore {
	return &InMemoryInvoiceRunStore{
		InMemoryStore: NewInMemoryStore[*invoicerun.InvoiceRun](),
	}
}

func copyInvoiceRun(r *invoicerun.InvoiceRun) *invoicerun.InvoiceRun {
	if r == nil {
		return nil
	}
	out := *r
	if r.TargetCustomerID != nil {
		target := *r.TargetCustomerID
		out.TargetCustomerID = &target
	}
	if r.StartedAt != nil {
		started := *r.StartedAt
		out.StartedAt = &started
	}
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		out.FinishedAt = &finished
	}
	out.Summary.CurrencyTotals = maps.Clone(r.Summary.CurrencyTotals)
	out.Summary.SourceBatchIDs = slices.Clone(r.Summary.SourceBatchIDs)
	if r.Summary.TimeRangeFrom != nil {
		from := *r.Summary.TimeRangeFrom
		out.Summary.TimeRangeFrom = &from
	}
	if r.Summary.TimeRangeTo != nil {
		to := *r.Summary.TimeRangeTo
		out.Summary.TimeRangeTo = &to
	}
	out.ErrorDetails = slices.Clone(r.ErrorDetails)
	return &out
}

func (s *InMemoryInvoiceRunStore) Create(ctx context.Context, r *invoicerun.InvoiceRun) error {
	return s.InMemoryStore.Create(ctx, r.ID, copyInvoiceRun(r))
}

func (s *InMemoryInvoiceRunStore) Get(ctx context.Context, id string) (*invoicerun.InvoiceRun, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoiceRun(r), nil
}

func (s *InMemoryInvoiceRunStore) Update(ctx context.Context, r *invoicerun.InvoiceRun) error {
	return s.InMemoryStore.Update(ctx, r.ID, copyInvoiceRun(r))
}

func (s *InMemoryInvoiceRunStore) ListByMonth(ctx context.Context, month types.BillingMonth) ([]*invoicerun.InvoiceRun, error) {
	filterFn := func(ctx context.Context, r *invoicerun.InvoiceRun, _ interface{}) bool {
		return r.InvoiceMonth == month
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, func(i, j *invoicerun.InvoiceRun) bool {
		if !i.CreatedAt.Equal(j.CreatedAt) {
			return i.CreatedAt.After(j.CreatedAt)
		}
		return i.ID > j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(r *invoicerun.InvoiceRun, _ int) *invoicerun.InvoiceRun {
		return copyInvoiceRun(r)
	}), nil
}

func (s *InMemoryInvoiceRunStore) GetBySourceKey(ctx context.Context, month types.BillingMonth, key types.SourceKey) (*invoicerun.InvoiceRun, error) {
	filterFn := func(ctx context.Context, r *invoicerun.InvoiceRun, _ interface{}) bool {
		return r.InvoiceMonth == month && r.SourceKey == key
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewErrorf("no run with source key %s in %s", key, month).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoiceRun(items[0]), nil
}

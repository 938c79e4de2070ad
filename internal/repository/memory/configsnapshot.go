package memory

import (
	"context"
	"slices"

	"github.com/cloudbill/cloudbill/internal/domain/configsnapshot"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/samber/lo"
)

// InMemoryConfigSnapshotStore implements configsnapshot.Repository
type InMemoryConfigSnapshotStore struct {
	*InMemoryStore[*configsnapshot.ConfigSnapshot]
}

func NewInMemoryConfigSnapshotStore() *InMemoryConfigSnapshotStore {
	return &InMemoryConfigSnapshotStore{
		InMemoryStore: NewInMemoryStore[*configsnapshot.ConfigSnapshot](),
	}
}

func copySnapshot(s *configsnapshot.ConfigSnapshot) *configsnapshot.ConfigSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Raw = slices.Clone(s.Raw)
	return &out
}

func (s *InMemoryConfigSnapshotStore) Create(ctx context.Context, snap *configsnapshot.ConfigSnapshot) error {
	return s.InMemoryStore.Create(ctx, snap.ID, copySnapshot(snap))
}

func (s *InMemoryConfigSnapshotStore) Get(ctx context.Context, id string) (*configsnapshot.ConfigSnapshot, error) {
	snap, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySnapshot(snap), nil
}

func (s *InMemoryConfigSnapshotStore) GetByInvoice(ctx context.Context, invoiceID string) (*configsnapshot.ConfigSnapshot, error) {
	filterFn := func(ctx context.Context, snap *configsnapshot.ConfigSnapshot, _ interface{}) bool {
		return snap.InvoiceID == invoiceID
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, nil)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ierr.NewErrorf("no config snapshot for invoice %s", invoiceID).
			Mark(ierr.ErrNotFound)
	}
	return copySnapshot(items[0]), nil
}

func (s *InMemoryConfigSnapshotStore) ListByRun(ctx context.Context, runID string) ([]*configsnapshot.ConfigSnapshot, error) {
	filterFn := func(ctx context.Context, snap *configsnapshot.ConfigSnapshot, _ interface{}) bool {
		return snap.RunID == runID
	}
	items, err := s.InMemoryStore.List(ctx, nil, filterFn, func(i, j *configsnapshot.ConfigSnapshot) bool {
		if !i.TakenAt.Equal(j.TakenAt) {
			return i.TakenAt.Before(j.TakenAt)
		}
		return i.ID < j.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(snap *configsnapshot.ConfigSnapshot, _ int) *configsnapshot.ConfigSnapshot {
		return copySnapshot(snap)
	}), nil
}

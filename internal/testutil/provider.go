package testutil

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/provider"
	"github.com/cloudbill/cloudbill/internal/types"
)

// StaticAdapter serves canned line items for one provider. Tests seed it
// with whatever usage a scenario needs; FetchLineItems filters by the
// requested month and accounts the way a real adapter would.
type StaticAdapter struct {
	ProviderName types.Provider
	Items        []*costdata.LineItem
	FetchErr     error
	Reachable    bool
}

func NewStaticAdapter(p types.Provider, items ...*costdata.LineItem) *StaticAdapter {
	return &StaticAdapter{ProviderName: p, Items: items, Reachable: true}
}

func (a *StaticAdapter) Provider() types.Provider {
	return a.ProviderName
}

func (a *StaticAdapter) FetchLineItems(_ context.Context, req *provider.FetchRequest) (*provider.FetchResult, error) {
	if a.FetchErr != nil {
		return nil, a.FetchErr
	}

	wanted := make(map[string]bool, len(req.AccountIDs))
	for _, id := range req.AccountIDs {
		wanted[id] = true
	}

	var items []*costdata.LineItem
	for _, item := range a.Items {
		if item.InvoiceMonth != req.Month {
			continue
		}
		if len(wanted) > 0 && !wanted[item.AccountID] {
			continue
		}
		copied := *item
		copied.Provider = a.ProviderName
		items = append(items, &copied)
	}

	return &provider.FetchResult{
		LineItems:      items,
		RowCount:       len(items),
		Checksum:       provider.Checksum(items),
		SourceType:     types.SourceTypeAPI,
		SourceMetadata: map[string]string{"adapter": "static"},
	}, nil
}

func (a *StaticAdapter) ValidateConnection(_ context.Context) bool {
	return a.Reachable
}

func (a *StaticAdapter) ListAccounts(_ context.Context) ([]provider.Account, error) {
	seen := make(map[string]bool)
	var accounts []provider.Account
	for _, item := range a.Items {
		if seen[item.AccountID] {
			continue
		}
		seen[item.AccountID] = true
		accounts = append(accounts, provider.Account{ID: item.AccountID, Name: item.AccountID})
	}
	if len(accounts) == 0 {
		return nil, ierr.NewError("no accounts seeded").
			Mark(ierr.ErrNotFound)
	}
	return accounts, nil
}

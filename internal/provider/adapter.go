package provider

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/types"
)

// FetchRequest scopes one fetch of vendor cost data.
type FetchRequest struct {
	Month types.BillingMonth
	// AccountIDs optionally narrows the fetch to specific vendor
	// accounts; empty means all accounts the credentials can see.
	AccountIDs []string
}

// FetchResult is the normalized output of an adapter fetch. Line items
// carry no batch id yet; the ingestion service assigns one after the
// checksum dedup check.
type FetchResult struct {
	LineItems      []*costdata.LineItem
	RowCount       int
	Checksum       string
	SourceType     types.SourceType
	SourceMetadata map[string]string
}

// Account is one vendor account visible to the adapter's credentials.
type Account struct {
	ID   string
	Name string
}

// Adapter normalizes one vendor's usage exports into line items. Adapters
// only normalize; pricing, discounts and credits are applied later in the
// pipeline.
type Adapter interface {
	// Provider identifies the vendor this adapter serves.
	Provider() types.Provider

	// FetchLineItems fetches and normalizes one month of usage.
	FetchLineItems(ctx context.Context, req *FetchRequest) (*FetchResult, error)

	// ValidateConnection reports whether the vendor endpoint is reachable
	// with the configured credentials. It never returns an error.
	ValidateConnection(ctx context.Context) bool

	// ListAccounts enumerates vendor accounts visible to the credentials.
	ListAccounts(ctx context.Context) ([]Account, error)
}

package service

import (
	"context"
	"io"

	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/idempotency"
	"github.com/cloudbill/cloudbill/internal/provider"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// IngestResult reports one ingestion outcome. Created is false when the
// checksum matched an existing batch and nothing was written.
type IngestResult struct {
	Batch   *costdata.IngestionBatch `json:"batch"`
	Created bool                     `json:"created"`
}

// feedParser is the upload path into an adapter that can decode a raw
// feed body.
type feedParser interface {
	ParseFeed(r io.Reader, month types.BillingMonth, accountIDs []string) (*provider.FetchResult, error)
}

// IngestionService pulls provider cost data into ingestion batches.
type IngestionService interface {
	// Ingest fetches one provider's data for a month. Re-ingesting
	// identical data (same checksum) is a no-op resolving to the
	// existing batch.
	Ingest(ctx context.Context, p types.Provider, month types.BillingMonth, accountIDs []string) (*IngestResult, error)

	// IngestUpload ingests a raw feed body through the provider's parser.
	IngestUpload(ctx context.Context, p types.Provider, month types.BillingMonth, body io.Reader) (*IngestResult, error)

	// IngestAll fans out over every registered provider concurrently.
	// Individual provider failures are collected, not fatal to the rest.
	IngestAll(ctx context.Context, month types.BillingMonth) ([]*IngestResult, error)

	ListBatches(ctx context.Context, month types.BillingMonth) ([]*costdata.IngestionBatch, error)
	GetBatch(ctx context.Context, id string) (*costdata.IngestionBatch, error)
}

type ingestionService struct {
	ServiceParams
	idgen *idempotency.Generator
}

func NewIngestionService(params ServiceParams) IngestionService {
	return &ingestionService{
		ServiceParams: params,
		idgen:         idempotency.NewGenerator(),
	}
}

func (s *ingestionService) Ingest(ctx context.Context, p types.Provider, month types.BillingMonth, accountIDs []string) (*IngestResult, error) {
	adapter, err := s.Providers.Get(p)
	if err != nil {
		return nil, err
	}

	fetched, err := adapter.FetchLineItems(ctx, &provider.FetchRequest{
		Month:      month,
		AccountIDs: accountIDs,
	})
	if err != nil {
		return nil, err
	}

	return s.storeBatch(ctx, p, month, fetched)
}

func (s *ingestionService) IngestUpload(ctx context.Context, p types.Provider, month types.BillingMonth, body io.Reader) (*IngestResult, error) {
	adapter, err := s.Providers.Get(p)
	if err != nil {
		return nil, err
	}
	parser, ok := adapter.(feedParser)
	if !ok {
		return nil, ierr.NewErrorf("provider %s does not accept uploads", p).
			WithHint("Upload ingestion is available for custom feeds only").
			Mark(ierr.ErrInvalidOperation)
	}

	fetched, err := parser.ParseFeed(body, month, nil)
	if err != nil {
		return nil, err
	}

	return s.storeBatch(ctx, p, month, fetched)
}

func (s *ingestionService) storeBatch(ctx context.Context, p types.Provider, month types.BillingMonth, fetched *provider.FetchResult) (*IngestResult, error) {
	if existing, err := s.CostDataRepo.GetBatchByChecksum(ctx, p, fetched.SourceType, month, fetched.Checksum); err == nil {
		s.Logger.Infow("identical data already ingested, resolving to existing batch",
			"provider", p,
			"month", month,
			"batch_id", existing.ID)
		return &IngestResult{Batch: existing, Created: false}, nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	// The reference is derived from the dedup tuple so identical data
	// always resolves to the same operator-facing label.
	reference := s.idgen.GenerateKey(idempotency.ScopeIngestionBatch, map[string]interface{}{
		"provider":    p,
		"source_type": fetched.SourceType,
		"month":       month,
		"checksum":    fetched.Checksum,
	})

	batch := &costdata.IngestionBatch{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixIngestionBatch),
		Reference:    reference,
		Provider:     p,
		SourceType:   fetched.SourceType,
		InvoiceMonth: month,
		RowCount:     fetched.RowCount,
		Checksum:     fetched.Checksum,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	for _, item := range fetched.LineItems {
		if item.ID == "" {
			item.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixLineItem)
		}
		item.BaseModel = types.GetDefaultBaseModel(ctx)
	}

	if err := s.CostDataRepo.CreateBatch(ctx, batch, fetched.LineItems); err != nil {
		// A concurrent ingest of the same data can win the race between
		// the checksum lookup and the insert.
		if ierr.IsAlreadyExists(err) {
			if existing, lookupErr := s.CostDataRepo.GetBatchByChecksum(ctx, p, fetched.SourceType, month, fetched.Checksum); lookupErr == nil {
				return &IngestResult{Batch: existing, Created: false}, nil
			}
		}
		return nil, err
	}

	s.Logger.Infow("ingested provider batch",
		"provider", p,
		"month", month,
		"batch_id", batch.ID,
		"rows", batch.RowCount)
	s.Audit.Emit(ctx, audit.EventBatchIngested, "", "", batch)

	return &IngestResult{Batch: batch, Created: true}, nil
}

func (s *ingestionService) IngestAll(ctx context.Context, month types.BillingMonth) ([]*IngestResult, error) {
	p := pool.NewWithResults[*IngestResult]().
		WithContext(ctx).
		WithCollectErrored().
		WithMaxGoroutines(4)

	for _, prov := range s.Providers.Providers() {
		prov := prov
		p.Go(func(ctx context.Context) (*IngestResult, error) {
			result, err := s.Ingest(ctx, prov, month, nil)
			if err != nil {
				s.Logger.Errorw("provider ingestion failed",
					"provider", prov,
					"month", month,
					"error", err)
				return nil, err
			}
			return result, nil
		})
	}

	results, err := p.Wait()
	out := make([]*IngestResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, err
}

func (s *ingestionService) ListBatches(ctx context.Context, month types.BillingMonth) ([]*costdata.IngestionBatch, error) {
	return s.CostDataRepo.ListBatches(ctx, month)
}

func (s *ingestionService) GetBatch(ctx context.Context, id string) (*costdata.IngestionBatch, error) {
	return s.CostDataRepo.GetBatch(ctx, id)
}

package provider

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"time"

	"github.com/cloudbill/cloudbill/internal/config"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/httpclient"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// customColumns is the feed contract for hand-maintained cost sources.
// usage_unit and meter_id may be blank; everything else is required.
var customColumns = []string{
	"account_id",
	"project_id",
	"service_id",
	"product_id",
	"meter_id",
	"usage_amount",
	"usage_unit",
	"cost",
	"currency",
	"usage_start",
	"usage_end",
}

// CustomAdapter ingests CSV cost feeds, either pulled from a configured
// endpoint or handed in directly as an upload.
type CustomAdapter struct {
	cfg    config.CustomConfig
	client httpclient.Client
	logger *logger.Logger
}

func NewCustomAdapter(cfg *config.Configuration, client httpclient.Client, logger *logger.Logger) *CustomAdapter {
	return &CustomAdapter{
		cfg:    cfg.Providers.Custom,
		client: client,
		logger: logger,
	}
}

func (a *CustomAdapter) Provider() types.Provider {
	return types.ProviderCustom
}

func (a *CustomAdapter) FetchLineItems(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if a.cfg.FeedURL == "" {
		return nil, ierr.NewError("custom feed url is not configured").
			WithHint("Set providers.custom.feedurl or upload the feed directly").
			Mark(ierr.ErrAdapter)
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    a.cfg.FeedURL + "?month=" + req.Month.String(),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Custom feed fetch failed").
			Mark(ierr.ErrAdapter)
	}
	if !resp.IsSuccess() {
		return nil, ierr.NewErrorf("custom feed returned status %d", resp.StatusCode).
			Mark(ierr.ErrAdapter)
	}

	result, err := a.ParseFeed(bytes.NewReader(resp.Body), req.Month, req.AccountIDs)
	if err != nil {
		return nil, err
	}
	result.SourceType = types.SourceTypeAPI
	result.SourceMetadata = map[string]string{"feed_url": a.cfg.FeedURL}
	return result, nil
}

// ParseFeed reads a CSV cost feed from r. The upload ingestion path calls
// this directly with the request body.
func (a *CustomAdapter) ParseFeed(r io.Reader, month types.BillingMonth, accountIDs []string) (*FetchResult, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Custom feed is empty or not valid CSV").
			Mark(ierr.ErrAdapter)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range customColumns {
		if _, ok := col[name]; !ok {
			return nil, ierr.NewErrorf("custom feed is missing column %s", name).
				Mark(ierr.ErrAdapter)
		}
	}

	wanted := accountFilter(accountIDs)
	var items []*costdata.LineItem
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
		}
		line++
		item, err := customLineItem(record, col, month)
		if err != nil {
			return nil, ierr.WithError(err).
				WithReportableDetails(map[string]any{"line": line}).
				Mark(ierr.ErrAdapter)
		}
		if wanted != nil && !wanted[item.AccountID] {
			continue
		}
		items = append(items, item)
	}

	return &FetchResult{
		LineItems:  items,
		RowCount:   len(items),
		Checksum:   Checksum(items),
		SourceType: types.SourceTypeUpload,
	}, nil
}

func customLineItem(record []string, col map[string]int, month types.BillingMonth) (*costdata.LineItem, error) {
	field := func(name string) string { return record[col[name]] }

	usage, err := decimal.NewFromString(field("usage_amount"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid usage_amount").
			Mark(ierr.ErrValidation)
	}
	cost, err := decimal.NewFromString(field("cost"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid cost").
			Mark(ierr.ErrValidation)
	}
	start, err := time.Parse(time.RFC3339, field("usage_start"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("usage_start must be RFC3339").
			Mark(ierr.ErrValidation)
	}
	end, err := time.Parse(time.RFC3339, field("usage_end"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("usage_end must be RFC3339").
			Mark(ierr.ErrValidation)
	}

	item := &costdata.LineItem{
		Provider:     types.ProviderCustom,
		AccountID:    field("account_id"),
		ProjectID:    field("project_id"),
		ServiceID:    field("service_id"),
		ProductID:    field("product_id"),
		MeterID:      field("meter_id"),
		UsageAmount:  usage,
		UsageUnit:    field("usage_unit"),
		Cost:         cost,
		Currency:     field("currency"),
		UsageStart:   start.UTC(),
		UsageEnd:     end.UTC(),
		InvoiceMonth: month,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

func (a *CustomAdapter) ValidateConnection(ctx context.Context) bool {
	if a.cfg.FeedURL == "" {
		return false
	}
	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodHead,
		URL:    a.cfg.FeedURL,
	})
	return err == nil && resp.IsSuccess()
}

// ListAccounts is discovery-free for custom feeds; accounts come from rows.
func (a *CustomAdapter) ListAccounts(ctx context.Context) ([]Account, error) {
	return nil, ierr.NewError("account listing is not supported for custom feeds").
		Mark(ierr.ErrInvalidOperation)
}

package provider

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudbill/cloudbill/internal/config"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// curColumns are the CUR 2.0 columns the adapter consumes. Reports carry
// many more; anything not listed here is ignored.
var curColumns = []string{
	"bill/PayerAccountId",
	"lineItem/UsageAccountId",
	"lineItem/ProductCode",
	"lineItem/UsageType",
	"lineItem/Operation",
	"lineItem/UsageAmount",
	"lineItem/UnblendedCost",
	"lineItem/CurrencyCode",
	"lineItem/UsageStartDate",
	"lineItem/UsageEndDate",
	"lineItem/ResourceId",
}

type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AWSAdapter reads Cost and Usage Report objects (gzipped CSV) out of the
// configured report bucket.
type AWSAdapter struct {
	cfg    config.AWSConfig
	s3     s3API
	logger *logger.Logger
}

func NewAWSAdapter(ctx context.Context, cfg *config.Configuration, logger *logger.Logger) (*AWSAdapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Providers.AWS.Region))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load AWS credentials").
			Mark(ierr.ErrAdapter)
	}
	return &AWSAdapter{
		cfg:    cfg.Providers.AWS,
		s3:     s3.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

func (a *AWSAdapter) Provider() types.Provider {
	return types.ProviderAWS
}

func (a *AWSAdapter) FetchLineItems(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if a.cfg.Bucket == "" {
		return nil, ierr.NewError("aws report bucket is not configured").
			WithHint("Set providers.aws.bucket").
			Mark(ierr.ErrAdapter)
	}

	prefix := strings.TrimSuffix(a.cfg.ReportPrefix, "/") + "/" + req.Month.YYYYMM() + "/"
	list, err := a.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: &a.cfg.Bucket,
		Prefix: &prefix,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list CUR objects").
			WithReportableDetails(map[string]any{"bucket": a.cfg.Bucket, "prefix": prefix}).
			Mark(ierr.ErrAdapter)
	}

	wanted := accountFilter(req.AccountIDs)
	var items []*costdata.LineItem
	keys := make([]string, 0, len(list.Contents))
	for _, obj := range list.Contents {
		key := *obj.Key
		if !strings.HasSuffix(key, ".csv.gz") {
			continue
		}
		keys = append(keys, key)
		rows, err := a.readObject(ctx, key, req.Month, wanted)
		if err != nil {
			return nil, err
		}
		items = append(items, rows...)
	}

	a.logger.Debugw("fetched aws cur rows",
		"month", req.Month,
		"objects", len(keys),
		"rows", len(items))

	return &FetchResult{
		LineItems:  items,
		RowCount:   len(items),
		Checksum:   Checksum(items),
		SourceType: types.SourceTypeExport,
		SourceMetadata: map[string]string{
			"bucket": a.cfg.Bucket,
			"prefix": prefix,
		},
	}, nil
}

func (a *AWSAdapter) readObject(ctx context.Context, key string, month types.BillingMonth, wanted map[string]bool) ([]*costdata.LineItem, error) {
	obj, err := a.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &a.cfg.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read CUR object").
			WithReportableDetails(map[string]any{"key": key}).
			Mark(ierr.ErrAdapter)
	}
	defer obj.Body.Close()

	gz, err := gzip.NewReader(obj.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("CUR object is not valid gzip").
			WithReportableDetails(map[string]any{"key": key}).
			Mark(ierr.ErrAdapter)
	}
	defer gz.Close()

	reader := csv.NewReader(gz)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range curColumns {
		if _, ok := col[name]; !ok {
			return nil, ierr.NewErrorf("cur object %s is missing column %s", key, name).
				Mark(ierr.ErrAdapter)
		}
	}

	var items []*costdata.LineItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
		}
		item, err := curLineItem(record, col, month)
		if err != nil {
			return nil, err
		}
		if wanted != nil && !wanted[item.AccountID] {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func curLineItem(record []string, col map[string]int, month types.BillingMonth) (*costdata.LineItem, error) {
	field := func(name string) string { return record[col[name]] }

	usage, err := decimal.NewFromString(field("lineItem/UsageAmount"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid usage amount in CUR row").
			Mark(ierr.ErrAdapter)
	}
	cost, err := decimal.NewFromString(field("lineItem/UnblendedCost"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid cost in CUR row").
			Mark(ierr.ErrAdapter)
	}
	start, err := time.Parse(time.RFC3339, field("lineItem/UsageStartDate"))
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
	}
	end, err := time.Parse(time.RFC3339, field("lineItem/UsageEndDate"))
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrAdapter)
	}

	return &costdata.LineItem{
		Provider:     types.ProviderAWS,
		AccountID:    field("bill/PayerAccountId"),
		SubaccountID: field("lineItem/UsageAccountId"),
		ProjectID:    field("lineItem/UsageAccountId"),
		ServiceID:    field("lineItem/ProductCode"),
		ProductID:    field("lineItem/UsageType"),
		MeterID:      field("lineItem/Operation"),
		ResourceID:   field("lineItem/ResourceId"),
		UsageAmount:  usage,
		Cost:         cost,
		Currency:     field("lineItem/CurrencyCode"),
		UsageStart:   start.UTC(),
		UsageEnd:     end.UTC(),
		InvoiceMonth: month,
	}, nil
}

func (a *AWSAdapter) ValidateConnection(ctx context.Context) bool {
	if a.cfg.Bucket == "" {
		return false
	}
	one := int32(1)
	_, err := a.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &a.cfg.Bucket,
		MaxKeys: &one,
	})
	return err == nil
}

// ListAccounts is not available from CUR data alone. Payer accounts show up
// in the rows themselves, so the org listing lives with the feed owner.
func (a *AWSAdapter) ListAccounts(ctx context.Context) ([]Account, error) {
	return nil, ierr.NewError("account listing is not supported for aws").
		WithHint("AWS accounts are discovered from ingested report rows").
		Mark(ierr.ErrInvalidOperation)
}

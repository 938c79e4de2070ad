package service

import (
	"strings"
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/provider"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type IngestionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service IngestionService
	adapter *testutil.StaticAdapter
	month   types.BillingMonth
}

func TestIngestionService(t *testing.T) {
	suite.Run(t, new(IngestionServiceSuite))
}

func (s *IngestionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.month = types.BillingMonth("2025-07")

	s.adapter = testutil.NewStaticAdapter(types.ProviderGCP,
		s.lineItem("acct-1", "sku-vm", 100),
		s.lineItem("acct-1", "sku-disk", 40),
	)
	registry := provider.NewRegistry(s.adapter)
	s.service = NewIngestionService(newTestServiceParams(&s.BaseServiceTestSuite, registry))
}

func (s *IngestionServiceSuite) lineItem(accountID, productID string, cost float64) *costdata.LineItem {
	start := s.month.Start()
	return &costdata.LineItem{
		Provider:     types.ProviderGCP,
		AccountID:    accountID,
		ProductID:    productID,
		UsageAmount:  decimal.NewFromInt(1),
		Cost:         decimal.NewFromFloat(cost),
		Currency:     "USD",
		UsageStart:   start,
		UsageEnd:     start.Add(time.Hour),
		InvoiceMonth: s.month,
	}
}

func (s *IngestionServiceSuite) TestIngestCreatesBatch() {
	result, err := s.service.Ingest(s.GetContext(), types.ProviderGCP, s.month, nil)
	s.NoError(err)
	s.True(result.Created)
	s.Equal(2, result.Batch.RowCount)
	s.NotEmpty(result.Batch.Checksum)
	s.NotEmpty(result.Batch.Reference)

	items, err := s.GetStores().CostDataRepo.ListLineItems(s.GetContext(), &costdata.LineItemFilter{
		InvoiceMonth: s.month,
		BatchID:      result.Batch.ID,
	})
	s.NoError(err)
	s.Len(items, 2)
	for _, item := range items {
		s.Equal(result.Batch.ID, item.BatchID)
		s.NotEmpty(item.ID)
	}
}

func (s *IngestionServiceSuite) TestReingestIdenticalDataIsNoOp() {
	first, err := s.service.Ingest(s.GetContext(), types.ProviderGCP, s.month, nil)
	s.NoError(err)
	s.True(first.Created)

	second, err := s.service.Ingest(s.GetContext(), types.ProviderGCP, s.month, nil)
	s.NoError(err)
	s.False(second.Created)
	s.Equal(first.Batch.ID, second.Batch.ID)

	count, err := s.GetStores().CostDataRepo.CountLineItems(s.GetContext(), &costdata.LineItemFilter{
		InvoiceMonth: s.month,
	})
	s.NoError(err)
	s.Equal(2, count)
}

func (s *IngestionServiceSuite) TestChangedDataCreatesNewBatch() {
	first, err := s.service.Ingest(s.GetContext(), types.ProviderGCP, s.month, nil)
	s.NoError(err)

	s.adapter.Items = append(s.adapter.Items, s.lineItem("acct-1", "sku-gpu", 900))
	second, err := s.service.Ingest(s.GetContext(), types.ProviderGCP, s.month, nil)
	s.NoError(err)
	s.True(second.Created)
	s.NotEqual(first.Batch.ID, second.Batch.ID)

	batches, err := s.service.ListBatches(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(batches, 2)
}

func (s *IngestionServiceSuite) TestIngestFiltersAccounts() {
	s.adapter.Items = append(s.adapter.Items, s.lineItem("acct-2", "sku-vm", 10))

	result, err := s.service.Ingest(s.GetContext(), types.ProviderGCP, s.month, []string{"acct-2"})
	s.NoError(err)
	s.Equal(1, result.Batch.RowCount)
}

func (s *IngestionServiceSuite) TestIngestUnknownProvider() {
	_, err := s.service.Ingest(s.GetContext(), types.ProviderAWS, s.month, nil)
	s.Error(err)
}

func (s *IngestionServiceSuite) TestUploadRequiresFeedParser() {
	_, err := s.service.IngestUpload(s.GetContext(), types.ProviderGCP, s.month,
		strings.NewReader("account_id,cost\nacct-1,5\n"))
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *IngestionServiceSuite) TestIngestAll() {
	results, err := s.service.IngestAll(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(results, 1)
	s.True(results[0].Created)
}

package service

import (
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	"github.com/cloudbill/cloudbill/internal/domain/invoicerun"
	"github.com/cloudbill/cloudbill/internal/domain/project"
	"github.com/cloudbill/cloudbill/internal/domain/skugroup"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AnalyticsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AnalyticsService
	month   types.BillingMonth
}

func TestAnalyticsService(t *testing.T) {
	suite.Run(t, new(AnalyticsServiceSuite))
}

func (s *AnalyticsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite, nil)
	s.service = NewAnalyticsService(params, NewSkuGroupService(params))
	s.month = types.BillingMonth("2025-07")
}

// seedRun builds a succeeded run with one invoice backed by real cost
// data: 100 of gcp compute and 50 of aws compute, priced at 120 total.
func (s *AnalyticsServiceSuite) seedRun(runID string, month types.BillingMonth) {
	ctx := s.GetContext()
	stores := s.GetStores()

	if _, err := stores.CustomerRepo.Get(ctx, "cust_1"); err != nil {
		s.NoError(stores.CustomerRepo.Create(ctx, &customer.Customer{
			ID:             "cust_1",
			ExternalID:     "acme",
			Name:           "Acme",
			Currency:       "USD",
			CustomerStatus: types.CustomerStatusActive,
			BaseModel:      types.GetDefaultBaseModel(ctx),
		}))
		s.NoError(stores.SkuGroupRepo.CreateGroup(ctx, &skugroup.SkuGroup{
			ID: "COMPUTE", Code: "COMPUTE", Name: "COMPUTE",
			BaseModel: types.GetDefaultBaseModel(ctx),
		}))
		s.NoError(stores.SkuGroupRepo.CreateMapping(ctx, &skugroup.Mapping{
			ID: "map_1", ProductID: "sku-vm", GroupID: "COMPUTE",
			BaseModel: types.GetDefaultBaseModel(ctx),
		}))
		s.NoError(stores.ProjectRepo.Create(ctx, &project.Project{
			ID: "proj_1", Name: "main", Provider: types.ProviderGCP,
			ProviderAccountID: "acct-1",
			BaseModel:         types.GetDefaultBaseModel(ctx),
		}))
		s.NoError(stores.BindingRepo.Create(ctx, &project.CustomerProjectBinding{
			ID: "bind_1", CustomerID: "cust_1", ProjectID: "proj_1",
			BaseModel: types.GetDefaultBaseModel(ctx),
		}))
	}

	start := month.Start().Add(time.Hour)
	items := []*costdata.LineItem{
		{
			ID: types.GenerateUUID(), Provider: types.ProviderGCP,
			AccountID: "acct-1", ProductID: "sku-vm",
			Cost: decimal.NewFromInt(100), Currency: "USD",
			UsageStart: start, UsageEnd: start.Add(time.Hour),
			InvoiceMonth: month, BaseModel: types.GetDefaultBaseModel(ctx),
		},
		{
			ID: types.GenerateUUID(), Provider: types.ProviderAWS,
			AccountID: "acct-1", ProductID: "sku-vm",
			Cost: decimal.NewFromInt(50), Currency: "USD",
			UsageStart: start, UsageEnd: start.Add(time.Hour),
			InvoiceMonth: month, BaseModel: types.GetDefaultBaseModel(ctx),
		},
	}
	batch := &costdata.IngestionBatch{
		ID:           types.GenerateUUID(),
		Reference:    "seed",
		Provider:     types.ProviderGCP,
		SourceType:   types.SourceTypeAPI,
		InvoiceMonth: month,
		RowCount:     len(items),
		Checksum:     types.GenerateUUID(),
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	s.NoError(stores.CostDataRepo.CreateBatch(ctx, batch, items))

	now := time.Now().UTC()
	run := &invoicerun.InvoiceRun{
		ID:           runID,
		InvoiceMonth: month,
		RunStatus:    types.RunStatusQueued,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	s.NoError(run.Start(types.TimeRangeSourceKey(month.Start(), month.End()), now))
	run.RunStatus = types.RunStatusSucceeded
	s.NoError(stores.InvoiceRunRepo.Create(ctx, run))

	inv := &invoice.Invoice{
		ID:            "inv_" + runID,
		RunID:         runID,
		CustomerID:    "cust_1",
		InvoiceMonth:  month,
		InvoiceNumber: "CB-" + month.YYYYMM() + "-ACME-0001",
		Subtotal:      decimal.NewFromInt(120),
		CreditAmount:  decimal.Zero,
		Total:         decimal.NewFromInt(120),
		Currency:      "USD",
		InvoiceStatus: types.InvoiceStatusDraft,
		LineItems: []*invoice.InvoiceLineItem{{
			ID:           types.GenerateUUID(),
			SkuGroupID:   "COMPUTE",
			SkuGroupCode: "COMPUTE",
			RawAmount:    decimal.NewFromInt(150),
			PricedAmount: decimal.NewFromInt(120),
			EntryCount:   2,
			Currency:     "USD",
			BaseModel:    types.GetDefaultBaseModel(ctx),
		}},
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	s.NoError(stores.InvoiceRepo.CreateWithLineItems(ctx, inv))
}

func (s *AnalyticsServiceSuite) TestRebuildSplitsProviders() {
	s.seedRun("run_1", s.month)
	s.NoError(s.service.RebuildForRun(s.GetContext(), "run_1"))

	summaries, err := s.service.GetMonthlySummaries(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(summaries, 2)

	byProvider := map[types.Provider]decimal.Decimal{}
	for _, row := range summaries {
		s.Equal("COMPUTE", row.SkuGroupID)
		byProvider[row.Provider] = row.PricedCost
	}
	// 120 priced over 150 raw, allocated 100/50 between providers.
	s.True(byProvider[types.ProviderGCP].Equal(decimal.NewFromInt(80)))
	s.True(byProvider[types.ProviderAWS].Equal(decimal.NewFromInt(40)))

	providers, err := s.service.GetProviderSnapshots(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(providers, 2)
	for _, row := range providers {
		s.NotNil(row.MarginPct)
		s.True(row.MarginPct.Equal(decimal.NewFromInt(-20)))
	}
}

func (s *AnalyticsServiceSuite) TestRebuildIsIdempotent() {
	s.seedRun("run_1", s.month)
	s.NoError(s.service.RebuildForRun(s.GetContext(), "run_1"))
	s.NoError(s.service.RebuildForRun(s.GetContext(), "run_1"))

	summaries, err := s.service.GetMonthlySummaries(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(summaries, 2)

	snapshots, err := s.service.GetCustomerSnapshots(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(snapshots, 1)
}

func (s *AnalyticsServiceSuite) TestGrowthAgainstPriorMonth() {
	prior := s.month.Prev()
	s.seedRun("run_prior", prior)
	s.NoError(s.service.RebuildForRun(s.GetContext(), "run_prior"))

	s.seedRun("run_now", s.month)
	s.NoError(s.service.RebuildForRun(s.GetContext(), "run_now"))

	snapshots, err := s.service.GetCustomerSnapshots(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(snapshots, 1)
	// Same total both months: zero growth, but computed, not nil.
	s.NotNil(snapshots[0].GrowthPct)
	s.True(snapshots[0].GrowthPct.IsZero())

	priorSnaps, err := s.service.GetCustomerSnapshots(s.GetContext(), prior)
	s.NoError(err)
	s.Len(priorSnaps, 1)
	s.Nil(priorSnaps[0].GrowthPct)
}

func (s *AnalyticsServiceSuite) TestRebuildForMonthRequiresSucceededRun() {
	err := s.service.RebuildForMonth(s.GetContext(), s.month)
	s.Error(err)

	s.seedRun("run_1", s.month)
	s.NoError(s.service.RebuildForMonth(s.GetContext(), s.month))
}

func (s *AnalyticsServiceSuite) TestRebuildUnknownRun() {
	err := s.service.RebuildForRun(s.GetContext(), "run_missing")
	s.Error(err)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/credit"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	"github.com/cloudbill/cloudbill/internal/domain/pricing"
	"github.com/cloudbill/cloudbill/internal/domain/project"
	"github.com/cloudbill/cloudbill/internal/domain/skugroup"
	"github.com/cloudbill/cloudbill/internal/domain/specialrule"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceRunServiceSuite struct {
	testutil.BaseServiceTestSuite
	runs      InvoiceRunService
	skuGroups SkuGroupService
	rules     SpecialRuleService
	pricing   PricingService
	credits   CreditService
	analytics AnalyticsService
	month     types.BillingMonth
	batchSeq  int
}

func TestInvoiceRunService(t *testing.T) {
	suite.Run(t, new(InvoiceRunServiceSuite))
}

func (s *InvoiceRunServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.month = types.BillingMonth("2025-07")
	s.batchSeq = 0

	params := newTestServiceParams(&s.BaseServiceTestSuite, nil)
	s.skuGroups = NewSkuGroupService(params)
	s.rules = NewSpecialRuleService(params)
	s.pricing = NewPricingService(params)
	s.credits = NewCreditService(params)
	s.analytics = NewAnalyticsService(params, s.skuGroups)
	s.runs = NewInvoiceRunService(params, s.skuGroups, s.rules, s.pricing, s.credits, s.analytics)

	s.seedCatalog()
	s.seedCustomer("cust_acme", "acme", "acct-acme")
	s.seedCustomer("cust_globex", "globex", "acct-globex")
}

func (s *InvoiceRunServiceSuite) seedCatalog() {
	ctx := s.GetContext()
	for _, code := range []string{"COMPUTE", "STORAGE"} {
		s.NoError(s.skuGroups.CreateGroup(ctx, &skugroup.SkuGroup{ID: code, Code: code, Name: code}))
	}
	s.NoError(s.skuGroups.CreateMapping(ctx, &skugroup.Mapping{ProductID: "sku-vm", GroupID: "COMPUTE"}))
	s.NoError(s.skuGroups.CreateMapping(ctx, &skugroup.Mapping{ProductID: "sku-disk", GroupID: "STORAGE"}))
}

func (s *InvoiceRunServiceSuite) seedCustomer(id, externalID, accountID string) {
	ctx := s.GetContext()
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:             id,
		ExternalID:     externalID,
		Name:           externalID,
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}))

	projectID := "proj_" + externalID
	s.NoError(s.GetStores().ProjectRepo.Create(ctx, &project.Project{
		ID:                projectID,
		Name:              externalID,
		Provider:          types.ProviderGCP,
		ProviderAccountID: accountID,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}))
	s.NoError(s.GetStores().BindingRepo.Create(ctx, &project.CustomerProjectBinding{
		ID:         "bind_" + externalID,
		CustomerID: id,
		ProjectID:  projectID,
		BaseModel:  types.GetDefaultBaseModel(ctx),
	}))
}

func (s *InvoiceRunServiceSuite) seedBatch(items ...*costdata.LineItem) *costdata.IngestionBatch {
	ctx := s.GetContext()
	s.batchSeq++
	batch := &costdata.IngestionBatch{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixIngestionBatch),
		Reference:    "test-batch",
		Provider:     types.ProviderGCP,
		SourceType:   types.SourceTypeAPI,
		InvoiceMonth: s.month,
		RowCount:     len(items),
		Checksum:     types.GenerateUUID(),
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	for _, item := range items {
		item.ID = types.GenerateUUID()
		item.BaseModel = types.GetDefaultBaseModel(ctx)
	}
	s.NoError(s.GetStores().CostDataRepo.CreateBatch(ctx, batch, items))
	return batch
}

func (s *InvoiceRunServiceSuite) lineItem(accountID, productID string, cost float64) *costdata.LineItem {
	start := s.month.Start().Add(24 * time.Hour)
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

func (s *InvoiceRunServiceSuite) seedDefaultUsage() {
	s.seedBatch(
		s.lineItem("acct-acme", "sku-vm", 100),
		s.lineItem("acct-acme", "sku-disk", 40),
		s.lineItem("acct-globex", "sku-vm", 250),
	)
}

func (s *InvoiceRunServiceSuite) customerInvoices(customerID string) []*invoice.Invoice {
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.Filter{
		CustomerID:   customerID,
		InvoiceMonth: s.month,
	})
	s.NoError(err)
	return invoices
}

func (s *InvoiceRunServiceSuite) TestMonthRunGeneratesInvoices() {
	s.seedDefaultUsage()

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)
	s.Equal(types.RunStatusSucceeded, run.RunStatus)
	s.Equal(2, run.Summary.InvoicesGenerated)
	s.Equal(2, run.Summary.CustomerCount)
	s.Equal(3, run.Summary.RowCount)
	s.Empty(run.ErrorDetails)
	s.True(run.Summary.CurrencyTotals["USD"].Equal(decimal.NewFromInt(390)))

	acme := s.customerInvoices("cust_acme")
	s.Len(acme, 1)
	s.Equal("CB-202507-ACME-0001", acme[0].InvoiceNumber)
	s.True(acme[0].Subtotal.Equal(decimal.NewFromInt(140)))
	s.True(acme[0].Total.Equal(acme[0].Subtotal))
	s.Len(acme[0].LineItems, 2)

	globex := s.customerInvoices("cust_globex")
	s.Len(globex, 1)
	s.Equal("CB-202507-GLOB-0001", globex[0].InvoiceNumber)
	s.True(globex[0].Subtotal.Equal(decimal.NewFromInt(250)))
}

func (s *InvoiceRunServiceSuite) TestRunIdempotentBySourceKey() {
	s.seedDefaultUsage()

	first, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)
	again, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)
	s.Equal(first.ID, again.ID)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), &invoice.Filter{InvoiceMonth: s.month})
	s.NoError(err)
	s.Len(invoices, 2)
}

func (s *InvoiceRunServiceSuite) TestBatchScopedRunsAllocateSequentialNumbers() {
	first := s.seedBatch(s.lineItem("acct-acme", "sku-vm", 100))
	second := s.seedBatch(s.lineItem("acct-acme", "sku-vm", 60))

	run1, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, BatchID: first.ID})
	s.NoError(err)
	s.Equal(types.BatchSourceKey(first.ID), run1.SourceKey)

	run2, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, BatchID: second.ID})
	s.NoError(err)
	s.NotEqual(run1.ID, run2.ID)

	invoices := s.customerInvoices("cust_acme")
	s.Len(invoices, 2)
	numbers := []string{invoices[0].InvoiceNumber, invoices[1].InvoiceNumber}
	s.Contains(numbers, "CB-202507-ACME-0001")
	s.Contains(numbers, "CB-202507-ACME-0002")
}

func (s *InvoiceRunServiceSuite) TestBatchFromOtherMonthRejected() {
	batch := s.seedBatch(s.lineItem("acct-acme", "sku-vm", 100))

	_, err := s.runs.Trigger(s.GetContext(), &RunOptions{
		Month:   s.month.Prev(),
		BatchID: batch.ID,
	})
	s.Error(err)
}

func (s *InvoiceRunServiceSuite) TestTargetCustomerRun() {
	s.seedDefaultUsage()
	target := "cust_acme"

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, TargetCustomerID: &target})
	s.NoError(err)
	s.Equal(types.RunStatusSucceeded, run.RunStatus)
	s.Equal(1, run.Summary.InvoicesGenerated)
	s.Len(s.customerInvoices("cust_acme"), 1)
	s.Empty(s.customerInvoices("cust_globex"))
}

func (s *InvoiceRunServiceSuite) TestSuspendedTargetRejected() {
	ctx := s.GetContext()
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:             "cust_suspended",
		ExternalID:     "frozen",
		Name:           "Frozen",
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusSuspended,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}))
	s.seedDefaultUsage()

	target := "cust_suspended"
	_, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, TargetCustomerID: &target})
	s.Error(err)
}

func (s *InvoiceRunServiceSuite) TestCreditsReduceInvoiceTotal() {
	s.seedDefaultUsage()
	s.NoError(s.credits.Create(s.GetContext(), &credit.Credit{
		ID:          "cred_1",
		CustomerID:  "cust_acme",
		Type:        types.CreditTypePrepaid,
		TotalAmount: decimal.NewFromInt(50),
		Currency:    "USD",
	}))

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)
	s.Equal(types.RunStatusSucceeded, run.RunStatus)

	acme := s.customerInvoices("cust_acme")[0]
	s.True(acme.CreditAmount.Equal(decimal.NewFromInt(50)))
	s.True(acme.Total.Equal(decimal.NewFromInt(90)))

	entries, err := s.GetStores().CreditRepo.ListLedgerByInvoice(s.GetContext(), acme.ID)
	s.NoError(err)
	s.Len(entries, 1)
	s.True(entries[0].BalanceAfter.IsZero())
}

func (s *InvoiceRunServiceSuite) TestPricingAppliedDuringRun() {
	s.seedDefaultUsage()
	list := &pricing.PricingList{CustomerID: "cust_acme", Name: "standard", ListStatus: types.PricingListStatusActive}
	s.NoError(s.pricing.CreateList(s.GetContext(), list))
	s.NoError(s.pricing.CreateRule(s.GetContext(), &pricing.PricingRule{
		ListID:       list.ID,
		Type:         types.PricingRuleListDiscount,
		ListDiscount: &pricing.ListDiscountParams{DiscountRate: decimal.NewFromFloat(0.90)},
	}))

	_, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)

	acme := s.customerInvoices("cust_acme")[0]
	s.True(acme.Subtotal.Equal(decimal.NewFromInt(126)))

	// The other customer has no list and keeps raw cost.
	globex := s.customerInvoices("cust_globex")[0]
	s.True(globex.Subtotal.Equal(decimal.NewFromInt(250)))
}

func (s *InvoiceRunServiceSuite) TestFullyExcludedCustomerGetsNoInvoice() {
	s.seedDefaultUsage()
	s.NoError(s.rules.Create(s.GetContext(), &specialrule.SpecialRule{
		CustomerID: "cust_globex",
		Type:       types.SpecialRuleExcludeSkuGroup,
		Match:      specialrule.Match{SkuGroupID: "COMPUTE"},
		Enabled:    true,
	}))

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)
	s.Equal(types.RunStatusSucceeded, run.RunStatus)
	s.Equal(1, run.Summary.InvoicesGenerated)
	s.Empty(s.customerInvoices("cust_globex"))
}

func (s *InvoiceRunServiceSuite) TestSnapshotWrittenPerInvoice() {
	s.seedDefaultUsage()

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)

	acme := s.customerInvoices("cust_acme")[0]
	snap, err := s.GetStores().ConfigSnapshotRepo.GetByInvoice(s.GetContext(), acme.ID)
	s.NoError(err)
	s.Equal(run.ID, snap.RunID)
	s.Equal("cust_acme", snap.CustomerID)
}

func (s *InvoiceRunServiceSuite) TestSnapshotFreezesPreBurnCreditBalances() {
	s.seedDefaultUsage()
	s.NoError(s.credits.Create(s.GetContext(), &credit.Credit{
		ID:          "cred_1",
		CustomerID:  "cust_acme",
		Type:        types.CreditTypePrepaid,
		TotalAmount: decimal.NewFromInt(50),
		Currency:    "USD",
	}))

	_, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)

	// The credit was fully burned against the invoice.
	acme := s.customerInvoices("cust_acme")[0]
	s.True(acme.CreditAmount.Equal(decimal.NewFromInt(50)))
	remaining, err := s.GetStores().CreditRepo.Get(s.GetContext(), "cred_1")
	s.NoError(err)
	s.True(remaining.RemainingAmount.IsZero())

	// The frozen payload still shows the balance in effect when the
	// invoice was generated.
	snap, err := s.GetStores().ConfigSnapshotRepo.GetByInvoice(s.GetContext(), acme.ID)
	s.NoError(err)
	payload, err := snap.Decode()
	s.NoError(err)
	s.Len(payload.Credits, 1)
	s.True(payload.Credits[0].RemainingAmount.Equal(decimal.NewFromInt(50)))
}

func (s *InvoiceRunServiceSuite) TestAnalyticsRebuiltAfterRun() {
	s.seedDefaultUsage()

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)

	summaries, err := s.analytics.GetMonthlySummaries(s.GetContext(), s.month)
	s.NoError(err)
	s.NotEmpty(summaries)

	snapshots, err := s.analytics.GetCustomerSnapshots(s.GetContext(), s.month)
	s.NoError(err)
	s.Len(snapshots, 2)
	for _, snap := range snapshots {
		s.Equal(run.ID, snap.RunID)
	}
}

// faultyInvoiceStore fails invoice creation for one customer and
// delegates everything else to the wrapped repository.
type faultyInvoiceStore struct {
	invoice.Repository
	failCustomerID string
}

func (f *faultyInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv.CustomerID == f.failCustomerID {
		return ierr.NewError("invoice storage unavailable").
			Mark(ierr.ErrSystem)
	}
	return f.Repository.CreateWithLineItems(ctx, inv)
}

func (s *InvoiceRunServiceSuite) withFailingInvoiceStore(customerID string) {
	params := newTestServiceParams(&s.BaseServiceTestSuite, nil)
	params.InvoiceRepo = &faultyInvoiceStore{Repository: params.InvoiceRepo, failCustomerID: customerID}
	s.runs = NewInvoiceRunService(params, s.skuGroups, s.rules, s.pricing, s.credits, s.analytics)
}

func (s *InvoiceRunServiceSuite) TestPartialCustomerFailureRunStillSucceeds() {
	s.seedDefaultUsage()
	s.withFailingInvoiceStore("cust_globex")

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)

	s.Equal(types.RunStatusSucceeded, run.RunStatus)
	s.Equal(1, run.Summary.InvoicesGenerated)
	s.Len(run.ErrorDetails, 1)
	s.Equal("cust_globex", run.ErrorDetails[0].CustomerID)
	s.NotEmpty(run.ErrorMessage)

	// The other customer's invoice survived.
	s.Len(s.customerInvoices("cust_acme"), 1)
	s.Empty(s.customerInvoices("cust_globex"))
}

func (s *InvoiceRunServiceSuite) TestRunFailsWhenErrorsAndNoInvoices() {
	s.seedBatch(s.lineItem("acct-globex", "sku-vm", 250))
	s.withFailingInvoiceStore("cust_globex")

	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)

	s.Equal(types.RunStatusFailed, run.RunStatus)
	s.Equal(0, run.Summary.InvoicesGenerated)
	s.Len(run.ErrorDetails, 1)
	s.Equal("cust_globex", run.ErrorDetails[0].CustomerID)
	s.NotEmpty(run.ErrorMessage)
}

func (s *InvoiceRunServiceSuite) TestRunWithNoDataSucceedsEmpty() {
	run, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month})
	s.NoError(err)
	s.Equal(types.RunStatusSucceeded, run.RunStatus)
	s.Equal(0, run.Summary.InvoicesGenerated)
}

func (s *InvoiceRunServiceSuite) TestInvalidOptions() {
	from := s.month.Start()
	to := s.month.End()

	_, err := s.runs.Trigger(s.GetContext(), &RunOptions{Month: "2025-7"})
	s.Error(err)

	_, err = s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, BatchID: "b", TimeFrom: &from, TimeTo: &to})
	s.Error(err)

	_, err = s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, TimeFrom: &from})
	s.Error(err)

	_, err = s.runs.Trigger(s.GetContext(), &RunOptions{Month: s.month, TimeFrom: &to, TimeTo: &from})
	s.Error(err)
}

package service

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/domain/analytics"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	"github.com/cloudbill/cloudbill/internal/domain/invoicerun"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AnalyticsService maintains the reporting fact tables. Rebuilds are
// idempotent per run: existing rows for the run are deleted before the
// recompute.
type AnalyticsService interface {
	RebuildForRun(ctx context.Context, runID string) error
	// RebuildForMonth rebuilds from the month's most recent succeeded run.
	RebuildForMonth(ctx context.Context, month types.BillingMonth) error

	GetMonthlySummaries(ctx context.Context, month types.BillingMonth) ([]*analytics.MonthlySummary, error)
	GetCustomerSnapshots(ctx context.Context, month types.BillingMonth) ([]*analytics.CustomerSnapshot, error)
	GetProviderSnapshots(ctx context.Context, month types.BillingMonth) ([]*analytics.ProviderSnapshot, error)
}

type analyticsService struct {
	ServiceParams
	skuGroups SkuGroupService
}

func NewAnalyticsService(params ServiceParams, skuGroups SkuGroupService) AnalyticsService {
	return &analyticsService{ServiceParams: params, skuGroups: skuGroups}
}

func (s *analyticsService) GetMonthlySummaries(ctx context.Context, month types.BillingMonth) ([]*analytics.MonthlySummary, error) {
	return s.AnalyticsRepo.ListMonthlySummaries(ctx, month)
}

func (s *analyticsService) GetCustomerSnapshots(ctx context.Context, month types.BillingMonth) ([]*analytics.CustomerSnapshot, error) {
	return s.AnalyticsRepo.ListCustomerSnapshots(ctx, month)
}

func (s *analyticsService) GetProviderSnapshots(ctx context.Context, month types.BillingMonth) ([]*analytics.ProviderSnapshot, error) {
	return s.AnalyticsRepo.ListProviderSnapshots(ctx, month)
}

func (s *analyticsService) RebuildForMonth(ctx context.Context, month types.BillingMonth) error {
	runs, err := s.InvoiceRunRepo.ListByMonth(ctx, month)
	if err != nil {
		return err
	}
	for _, run := range runs {
		if run.RunStatus == types.RunStatusSucceeded {
			return s.RebuildForRun(ctx, run.ID)
		}
	}
	return ierr.NewErrorf("no succeeded run for month %s", month).
		WithHint("Trigger an invoice run before rebuilding analytics").
		Mark(ierr.ErrNotFound)
}

func (s *analyticsService) RebuildForRun(ctx context.Context, runID string) error {
	run, err := s.InvoiceRunRepo.Get(ctx, runID)
	if err != nil {
		return err
	}
	invoices, err := s.InvoiceRepo.List(ctx, &invoice.Filter{RunID: runID})
	if err != nil {
		return err
	}

	if err := s.AnalyticsRepo.DeleteByRunID(ctx, runID); err != nil {
		return err
	}

	var summaries []*analytics.MonthlySummary
	var customerRows []*analytics.CustomerSnapshot
	providerRaw := make(map[types.Provider]decimal.Decimal)
	providerPriced := make(map[types.Provider]decimal.Decimal)

	for _, inv := range invoices {
		rows, err := s.summarizeInvoice(ctx, run, inv)
		if err != nil {
			return err
		}
		for _, row := range rows {
			providerRaw[row.Provider] = providerRaw[row.Provider].Add(row.RawCost)
			providerPriced[row.Provider] = providerPriced[row.Provider].Add(row.PricedCost)
		}
		summaries = append(summaries, rows...)

		customerRows = append(customerRows, s.customerSnapshot(ctx, run, inv))
	}

	if err := s.AnalyticsRepo.CreateMonthlySummaries(ctx, summaries); err != nil {
		return err
	}
	if err := s.AnalyticsRepo.CreateCustomerSnapshots(ctx, customerRows); err != nil {
		return err
	}

	var providerRows []*analytics.ProviderSnapshot
	for prov, raw := range providerRaw {
		row := &analytics.ProviderSnapshot{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixAnalytics),
			RunID:        runID,
			InvoiceMonth: run.InvoiceMonth,
			Provider:     prov,
			RawCost:      raw,
			PricedCost:   providerPriced[prov],
			BaseModel:    types.GetDefaultBaseModel(ctx),
		}
		if !raw.IsZero() {
			margin := providerPriced[prov].Sub(raw).Div(raw).Mul(hundred)
			row.MarginPct = &margin
		}
		providerRows = append(providerRows, row)
	}
	if err := s.AnalyticsRepo.CreateProviderSnapshots(ctx, providerRows); err != nil {
		return err
	}

	s.Logger.Infow("analytics rebuilt",
		"run_id", runID,
		"month", run.InvoiceMonth,
		"summary_rows", len(summaries))
	return nil
}

// summarizeInvoice recomputes the (customer, sku group, provider) rollup
// behind one invoice. Priced cost is known per group only, so it is
// allocated across providers proportionally to each provider's raw share
// of the group.
func (s *analyticsService) summarizeInvoice(ctx context.Context, run *invoicerun.InvoiceRun, inv *invoice.Invoice) ([]*analytics.MonthlySummary, error) {
	items, err := s.invoiceSourceItems(ctx, run, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	tagged, err := s.skuGroups.TagItems(ctx, items)
	if err != nil {
		return nil, err
	}

	type groupProvider struct {
		group    string
		provider types.Provider
	}
	raw := make(map[groupProvider]decimal.Decimal)
	count := make(map[groupProvider]int)
	currency := make(map[groupProvider]string)
	groupRaw := make(map[string]decimal.Decimal)
	for _, t := range tagged {
		key := groupProvider{group: t.GroupID, provider: t.Item.Provider}
		raw[key] = raw[key].Add(t.Item.Cost)
		count[key]++
		currency[key] = mergeCurrency(currency[key], t.Item.Currency)
		groupRaw[t.GroupID] = groupRaw[t.GroupID].Add(t.Item.Cost)
	}

	pricedByGroup := make(map[string]decimal.Decimal, len(inv.LineItems))
	for _, li := range inv.LineItems {
		pricedByGroup[li.SkuGroupID] = li.PricedAmount
	}

	var rows []*analytics.MonthlySummary
	for key, amount := range raw {
		priced := decimal.Zero
		if total := groupRaw[key.group]; !total.IsZero() {
			priced = pricedByGroup[key.group].Mul(amount).Div(total)
		}
		rows = append(rows, &analytics.MonthlySummary{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixAnalytics),
			RunID:        run.ID,
			InvoiceMonth: run.InvoiceMonth,
			CustomerID:   inv.CustomerID,
			SkuGroupID:   key.group,
			Provider:     key.provider,
			RawCost:      amount,
			PricedCost:   priced,
			ItemCount:    count[key],
			Currency:     currency[key],
			BaseModel:    types.GetDefaultBaseModel(ctx),
		})
	}
	return rows, nil
}

// invoiceSourceItems replays the run's cost-data scope for one customer.
func (s *analyticsService) invoiceSourceItems(ctx context.Context, run *invoicerun.InvoiceRun, customerID string) ([]*costdata.LineItem, error) {
	bindings, err := s.BindingRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	var accountIDs []string
	seen := make(map[string]struct{})
	for _, b := range bindings {
		if b.Status != types.StatusPublished || !b.OverlapsMonth(run.InvoiceMonth) {
			continue
		}
		proj, err := s.ProjectRepo.Get(ctx, b.ProjectID)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[proj.ProviderAccountID]; !ok {
			seen[proj.ProviderAccountID] = struct{}{}
			accountIDs = append(accountIDs, proj.ProviderAccountID)
		}
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}

	filter := &costdata.LineItemFilter{
		InvoiceMonth: run.InvoiceMonth,
		AccountIDs:   accountIDs,
	}
	if batchID := run.SourceKey.BatchID(); batchID != "" {
		filter.BatchID = batchID
	} else if from, to, ok := run.SourceKey.TimeRange(); ok {
		filter.UsageFrom = &from
		filter.UsageTo = &to
	}
	return s.CostDataRepo.ListLineItems(ctx, filter)
}

func (s *analyticsService) customerSnapshot(ctx context.Context, run *invoicerun.InvoiceRun, inv *invoice.Invoice) *analytics.CustomerSnapshot {
	row := &analytics.CustomerSnapshot{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixAnalytics),
		RunID:        run.ID,
		InvoiceMonth: run.InvoiceMonth,
		CustomerID:   inv.CustomerID,
		Subtotal:     inv.Subtotal,
		CreditAmount: inv.CreditAmount,
		Total:        inv.Total,
		Currency:     inv.Currency,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}

	prior, err := s.AnalyticsRepo.GetCustomerSnapshot(ctx, inv.CustomerID, run.InvoiceMonth.Prev())
	if err == nil && !prior.Total.IsZero() {
		growth := inv.Total.Sub(prior.Total).Div(prior.Total).Mul(hundred)
		row.GrowthPct = &growth
	}
	return row
}

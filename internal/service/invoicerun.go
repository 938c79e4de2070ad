package service

import (
	"context"
	"time"

	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/domain/configsnapshot"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	"github.com/cloudbill/cloudbill/internal/domain/invoicerun"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// RunOptions selects the cost-data slice and scope of an invoice run.
// BatchID and the time range are mutually exclusive; with neither set the
// run consumes the whole month.
type RunOptions struct {
	Month            types.BillingMonth
	BatchID          string
	TimeFrom         *time.Time
	TimeTo           *time.Time
	TargetCustomerID *string
}

func (o *RunOptions) Validate() error {
	if err := o.Month.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Run month must be YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	if o.BatchID != "" && (o.TimeFrom != nil || o.TimeTo != nil) {
		return ierr.NewError("batch and time range scopes are mutually exclusive").
			Mark(ierr.ErrValidation)
	}
	if (o.TimeFrom == nil) != (o.TimeTo == nil) {
		return ierr.NewError("time range scope requires both bounds").
			Mark(ierr.ErrValidation)
	}
	if o.TimeFrom != nil && !o.TimeFrom.Before(*o.TimeTo) {
		return ierr.NewError("time range lower bound must precede upper bound").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// sourceKey derives the run's idempotency key from the selected slice.
func (o *RunOptions) sourceKey() types.SourceKey {
	if o.BatchID != "" {
		return types.BatchSourceKey(o.BatchID)
	}
	if o.TimeFrom != nil {
		return types.TimeRangeSourceKey(*o.TimeFrom, *o.TimeTo)
	}
	return types.TimeRangeSourceKey(o.Month.Start(), o.Month.End())
}

// InvoiceRunService owns the run state machine and the per-customer
// billing pipeline.
type InvoiceRunService interface {
	// Trigger starts a run for the given slice. Re-triggering the same
	// slice resolves to the existing run unless that run FAILED.
	Trigger(ctx context.Context, opts *RunOptions) (*invoicerun.InvoiceRun, error)
	Get(ctx context.Context, id string) (*invoicerun.InvoiceRun, error)
	ListByMonth(ctx context.Context, month types.BillingMonth) ([]*invoicerun.InvoiceRun, error)
}

type invoiceRunService struct {
	ServiceParams
	skuGroups    SkuGroupService
	specialRules SpecialRuleService
	pricing      PricingService
	credits      CreditService
	analytics    AnalyticsService
}

func NewInvoiceRunService(
	params ServiceParams,
	skuGroups SkuGroupService,
	specialRules SpecialRuleService,
	pricingSvc PricingService,
	credits CreditService,
	analyticsSvc AnalyticsService,
) InvoiceRunService {
	return &invoiceRunService{
		ServiceParams: params,
		skuGroups:     skuGroups,
		specialRules:  specialRules,
		pricing:       pricingSvc,
		credits:       credits,
		analytics:     analyticsSvc,
	}
}

func (s *invoiceRunService) Get(ctx context.Context, id string) (*invoicerun.InvoiceRun, error) {
	return s.InvoiceRunRepo.Get(ctx, id)
}

func (s *invoiceRunService) ListByMonth(ctx context.Context, month types.BillingMonth) ([]*invoicerun.InvoiceRun, error) {
	return s.InvoiceRunRepo.ListByMonth(ctx, month)
}

func (s *invoiceRunService) Trigger(ctx context.Context, opts *RunOptions) (*invoicerun.InvoiceRun, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	key := opts.sourceKey()

	if existing, err := s.InvoiceRunRepo.GetBySourceKey(ctx, opts.Month, key); err == nil {
		if existing.RunStatus != types.RunStatusFailed {
			s.Logger.Infow("run for source already exists, resolving to it",
				"run_id", existing.ID,
				"source_key", key)
			return existing, nil
		}
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	run := &invoicerun.InvoiceRun{
		ID:               types.GenerateUUIDWithPrefix(types.UUIDPrefixInvoiceRun),
		InvoiceMonth:     opts.Month,
		RunStatus:        types.RunStatusQueued,
		TargetCustomerID: opts.TargetCustomerID,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if err := s.InvoiceRunRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	if err := s.execute(ctx, run, opts, key); err != nil {
		return run, err
	}
	return run, nil
}

func (s *invoiceRunService) execute(ctx context.Context, run *invoicerun.InvoiceRun, opts *RunOptions, key types.SourceKey) error {
	now := time.Now().UTC()
	if err := run.Start(key, now); err != nil {
		return err
	}
	if err := s.InvoiceRunRepo.Update(ctx, run); err != nil {
		return err
	}
	s.Audit.Emit(ctx, audit.EventRunStarted, run.ID, "", run.SourceKey)
	s.Logger.Infow("invoice run started",
		"run_id", run.ID,
		"month", run.InvoiceMonth,
		"source_key", key)

	summary, errs, err := s.billCustomers(ctx, run, opts)
	if err != nil {
		// Failures outside the per-customer loop fail the run outright.
		run.Fail(err, errs, time.Now().UTC())
		if uerr := s.InvoiceRunRepo.Update(ctx, run); uerr != nil {
			s.Logger.Errorw("failed to persist failed run", "run_id", run.ID, "error", uerr)
		}
		s.Audit.Emit(ctx, audit.EventRunCompleted, run.ID, "", run.RunStatus)
		return err
	}

	if err := run.Finish(*summary, errs, time.Now().UTC()); err != nil {
		return err
	}
	if err := s.InvoiceRunRepo.Update(ctx, run); err != nil {
		return err
	}
	s.Audit.Emit(ctx, audit.EventRunCompleted, run.ID, "", run.RunStatus)
	s.Logger.Infow("invoice run finished",
		"run_id", run.ID,
		"status", run.RunStatus,
		"invoices", summary.InvoicesGenerated,
		"errors", len(errs))

	if run.RunStatus == types.RunStatusSucceeded {
		// Analytics rebuilds are idempotent and recoverable; a rebuild
		// failure never reopens a finished run.
		if err := s.analytics.RebuildForRun(ctx, run.ID); err != nil {
			s.Logger.Errorw("analytics rebuild failed",
				"run_id", run.ID,
				"error", err)
		}
	}
	return nil
}

// billCustomers runs the per-customer pipeline. The returned error is
// reserved for failures outside the loop; customer failures land in errs.
func (s *invoiceRunService) billCustomers(ctx context.Context, run *invoicerun.InvoiceRun, opts *RunOptions) (*invoicerun.Summary, []invoicerun.RunError, error) {
	baseFilter, sourceBatchIDs, err := s.scopeFilter(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var customers []*customer.Customer
	if opts.TargetCustomerID != nil {
		c, err := s.CustomerRepo.Get(ctx, *opts.TargetCustomerID)
		if err != nil {
			return nil, nil, err
		}
		if !c.Billable() {
			return nil, nil, ierr.NewErrorf("customer %s is not billable", c.ID).
				WithHint("Only ACTIVE customers can be invoiced").
				Mark(ierr.ErrInvalidOperation)
		}
		customers = []*customer.Customer{c}
	} else {
		customers, err = s.CustomerRepo.ListActive(ctx)
		if err != nil {
			return nil, nil, err
		}
	}

	summary := &invoicerun.Summary{
		CurrencyTotals: make(map[string]decimal.Decimal),
		SourceBatchIDs: sourceBatchIDs,
		TimeRangeFrom:  baseFilter.UsageFrom,
		TimeRangeTo:    baseFilter.UsageTo,
	}
	var errs []invoicerun.RunError

	for _, cust := range customers {
		cctx, cancel := context.WithTimeout(ctx, s.Config.Billing.CustomerTimeout)
		outcome, err := s.billCustomer(cctx, run, cust, baseFilter)
		cancel()

		if err != nil {
			s.Logger.Errorw("customer billing failed",
				"run_id", run.ID,
				"customer_id", cust.ID,
				"error", err)
			errs = append(errs, invoicerun.RunError{
				CustomerID: cust.ID,
				Message:    err.Error(),
				OccurredAt: time.Now().UTC(),
			})
			continue
		}
		if outcome == nil {
			continue
		}

		errs = append(errs, outcome.Recoverable...)
		summary.CustomerCount++
		summary.ProjectCount += outcome.ProjectCount
		summary.RowCount += outcome.RowCount
		if outcome.Invoice != nil {
			summary.InvoicesGenerated++
			currency := outcome.Invoice.Currency
			summary.CurrencyTotals[currency] = summary.CurrencyTotals[currency].Add(outcome.Invoice.Total)
		}
	}

	return summary, errs, nil
}

// scopeFilter translates run options into the line item filter shared by
// every customer in the run.
func (s *invoiceRunService) scopeFilter(ctx context.Context, opts *RunOptions) (*costdata.LineItemFilter, []string, error) {
	filter := &costdata.LineItemFilter{InvoiceMonth: opts.Month}

	if opts.BatchID != "" {
		batch, err := s.CostDataRepo.GetBatch(ctx, opts.BatchID)
		if err != nil {
			return nil, nil, err
		}
		if batch.InvoiceMonth != opts.Month {
			return nil, nil, ierr.NewErrorf("batch %s belongs to month %s", batch.ID, batch.InvoiceMonth).
				Mark(ierr.ErrValidation)
		}
		filter.BatchID = batch.ID
		return filter, []string{batch.ID}, nil
	}

	if opts.TimeFrom != nil {
		filter.UsageFrom = opts.TimeFrom
		filter.UsageTo = opts.TimeTo
	} else {
		start, end := opts.Month.Start(), opts.Month.End()
		filter.UsageFrom = &start
		filter.UsageTo = &end
	}
	return filter, nil, nil
}

// customerOutcome is the result of billing one customer. A nil outcome
// with nil error means the customer had nothing to invoice.
type customerOutcome struct {
	Invoice      *invoice.Invoice
	RowCount     int
	ProjectCount int
	// Recoverable lists failures that left a valid invoice behind, e.g.
	// credit application errors.
	Recoverable []invoicerun.RunError
}

func (s *invoiceRunService) billCustomer(ctx context.Context, run *invoicerun.InvoiceRun, cust *customer.Customer, baseFilter *costdata.LineItemFilter) (*customerOutcome, error) {
	accountIDs, projectCount, err := s.customerAccounts(ctx, cust.ID, run.InvoiceMonth)
	if err != nil {
		return nil, err
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}

	filter := *baseFilter
	filter.AccountIDs = accountIDs
	items, err := s.CostDataRepo.ListLineItems(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	tagged, err := s.skuGroups.TagItems(ctx, items)
	if err != nil {
		return nil, err
	}

	transformed, err := s.specialRules.Transform(ctx, cust.ID, run.InvoiceMonth, run.ID, tagged)
	if err != nil {
		return nil, err
	}

	priced, err := s.pricing.PriceItems(ctx, cust.ID, run.InvoiceMonth, transformed.Items)
	if err != nil {
		return nil, err
	}

	outcome := &customerOutcome{
		RowCount:     len(items),
		ProjectCount: projectCount,
	}
	if len(priced.Groups) == 0 {
		// Every item was excluded or moved away; nothing to invoice.
		return outcome, nil
	}

	inv, err := s.createInvoice(ctx, run, cust, priced)
	if err != nil {
		return nil, err
	}
	outcome.Invoice = inv

	// The snapshot is taken before the credit engine runs so the frozen
	// credits carry their pre-burn balances.
	if err := s.snapshotConfig(ctx, run, cust.ID, inv.ID); err != nil {
		s.Logger.Errorw("config snapshot failed",
			"run_id", run.ID,
			"invoice_id", inv.ID,
			"error", err)
		outcome.Recoverable = append(outcome.Recoverable, invoicerun.RunError{
			CustomerID: cust.ID,
			Message:    "config snapshot failed: " + err.Error(),
			OccurredAt: time.Now().UTC(),
		})
	}

	now := time.Now().UTC()
	applied, _, err := s.credits.ApplyToInvoice(ctx, cust.ID, inv.ID, run.ID, inv.Subtotal, inv.Currency, now)
	if err != nil {
		// The zero-credit invoice is already persisted and valid; the
		// failure is recorded for a follow-up instead of failing the
		// customer.
		s.Logger.Errorw("credit application failed, invoice kept without credits",
			"run_id", run.ID,
			"invoice_id", inv.ID,
			"error", err)
		outcome.Recoverable = append(outcome.Recoverable, invoicerun.RunError{
			CustomerID: cust.ID,
			Message:    "credit application failed: " + err.Error(),
			OccurredAt: now,
		})
	} else if applied.GreaterThan(decimal.Zero) {
		inv.CreditAmount = applied
		inv.Total = inv.Subtotal.Sub(applied)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return nil, err
		}
	}

	s.Audit.Emit(ctx, audit.EventInvoiceCreated, run.ID, cust.ID, inv)
	return outcome, nil
}

// customerAccounts resolves the provider account ids bound to a customer
// during the month.
func (s *invoiceRunService) customerAccounts(ctx context.Context, customerID string, month types.BillingMonth) ([]string, int, error) {
	bindings, err := s.BindingRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]struct{})
	var accountIDs []string
	projects := make(map[string]struct{})
	for _, b := range bindings {
		if b.Status != types.StatusPublished || !b.OverlapsMonth(month) {
			continue
		}
		proj, err := s.ProjectRepo.Get(ctx, b.ProjectID)
		if err != nil {
			return nil, 0, err
		}
		projects[proj.ID] = struct{}{}
		if _, ok := seen[proj.ProviderAccountID]; !ok {
			seen[proj.ProviderAccountID] = struct{}{}
			accountIDs = append(accountIDs, proj.ProviderAccountID)
		}
	}
	return accountIDs, len(projects), nil
}

// createInvoice allocates the invoice number and persists the invoice with
// its line items. On a number collision it retries the next sequence once,
// then falls back to a timestamp-suffixed number.
func (s *invoiceRunService) createInvoice(ctx context.Context, run *invoicerun.InvoiceRun, cust *customer.Customer, priced *PricingResult) (*invoice.Invoice, error) {
	prefix := s.Config.Billing.InvoiceNumberPrefix
	month := run.InvoiceMonth

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUIDPrefixInvoice),
		RunID:         run.ID,
		CustomerID:    cust.ID,
		InvoiceMonth:  month,
		Subtotal:      priced.Subtotal,
		CreditAmount:  decimal.Zero,
		Total:         priced.Subtotal,
		Currency:      priced.Currency,
		InvoiceStatus: types.InvoiceStatusDraft,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	for _, g := range priced.Groups {
		inv.LineItems = append(inv.LineItems, &invoice.InvoiceLineItem{
			ID:            types.GenerateUUIDWithPrefix(types.UUIDPrefixInvoiceLineItem),
			InvoiceID:     inv.ID,
			SkuGroupID:    g.GroupID,
			SkuGroupCode:  g.GroupCode,
			RawAmount:     g.RawAmount,
			PricedAmount:  g.PricedAmount,
			EntryCount:    g.EntryCount,
			Currency:      g.Currency,
			PricingRuleID: g.RuleID,
			DiscountRate:  g.DiscountRate,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		})
	}

	count, err := s.InvoiceRepo.CountForCustomerMonth(ctx, cust.ID, month)
	if err != nil {
		return nil, err
	}
	seq := count + 1

	number := invoice.FormatNumber(prefix, month, cust.ExternalID, seq)
	if taken, err := s.InvoiceRepo.ExistsByNumber(ctx, number); err != nil {
		return nil, err
	} else if taken {
		seq++
		number = invoice.FormatNumber(prefix, month, cust.ExternalID, seq)
	}

	inv.InvoiceNumber = number
	err = s.InvoiceRepo.CreateWithLineItems(ctx, inv)
	if ierr.IsAlreadyExists(err) {
		seq++
		inv.InvoiceNumber = invoice.FormatNumber(prefix, month, cust.ExternalID, seq)
		err = s.InvoiceRepo.CreateWithLineItems(ctx, inv)
	}
	if ierr.IsAlreadyExists(err) {
		inv.InvoiceNumber = invoice.FallbackNumber(prefix, month, cust.ExternalID, time.Now())
		err = s.InvoiceRepo.CreateWithLineItems(ctx, inv)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// snapshotConfig freezes the customer's rule and credit configuration
// against the generated invoice. It reads the credit balances live, so the
// caller must invoke it before applying credits.
func (s *invoiceRunService) snapshotConfig(ctx context.Context, run *invoicerun.InvoiceRun, customerID, invoiceID string) error {
	rules, err := s.SpecialRuleRepo.ListEnabledForMonth(ctx, customerID, run.InvoiceMonth)
	if err != nil {
		return err
	}

	payload := &configsnapshot.Payload{SpecialRules: rules}

	list, err := s.PricingRepo.GetActiveList(ctx, customerID)
	switch {
	case err == nil:
		payload.PricingList = list
		payload.PricingRules, err = s.PricingRepo.ListRules(ctx, list.ID)
		if err != nil {
			return err
		}
	case ierr.IsNotFound(err):
	default:
		return err
	}

	payload.Credits, err = s.CreditRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	snap, err := configsnapshot.NewConfigSnapshot(run.ID, customerID, invoiceID, payload, time.Now().UTC())
	if err != nil {
		return err
	}
	snap.BaseModel = types.GetDefaultBaseModel(ctx)
	return s.ConfigSnapshotRepo.Create(ctx, snap)
}

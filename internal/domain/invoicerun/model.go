package invoicerun

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// RunError records one customer's failure inside a run. Per-customer
// errors never abort the run; they stay visible here for operators to
// re-run the affected customer.
type RunError struct {
	CustomerID string    `json:"customer_id,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Summary is the aggregate metadata written atomically when a run reaches
// a terminal state.
type Summary struct {
	CustomerCount     int                        `json:"customer_count"`
	ProjectCount      int                        `json:"project_count"`
	RowCount          int                        `json:"row_count"`
	InvoicesGenerated int                        `json:"invoices_generated"`
	CurrencyTotals    map[string]decimal.Decimal `json:"currency_totals,omitempty"`
	SourceBatchIDs    []string                   `json:"source_batch_ids,omitempty"`
	TimeRangeFrom     *time.Time                 `json:"time_range_from,omitempty"`
	TimeRangeTo       *time.Time                 `json:"time_range_to,omitempty"`
}

// InvoiceRun is one execution of the billing pipeline for a month.
// Status transitions are owned exclusively by the orchestrator:
// QUEUED -> RUNNING -> {SUCCEEDED, FAILED}.
type InvoiceRun struct {
	ID           string             `json:"id"`
	InvoiceMonth types.BillingMonth `json:"invoice_month"`
	RunStatus    types.RunStatus    `json:"run_status"`

	// SourceKey identifies the cost-data slice consumed and doubles as
	// the run's idempotency key. Set on the QUEUED -> RUNNING transition.
	SourceKey types.SourceKey `json:"source_key,omitempty"`

	// TargetCustomerID scopes the run to a single customer (re-runs).
	TargetCustomerID *string `json:"target_customer_id,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Summary      Summary    `json:"summary"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ErrorDetails []RunError `json:"error_details,omitempty"`

	types.BaseModel
}

// Start moves the run from QUEUED to RUNNING, recording the source filter.
func (r *InvoiceRun) Start(sourceKey types.SourceKey, now time.Time) error {
	if r.RunStatus != types.RunStatusQueued {
		return ierr.NewErrorf("cannot start run in status %s", r.RunStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	r.RunStatus = types.RunStatusRunning
	r.SourceKey = sourceKey
	r.StartedAt = &now
	return nil
}

// Finish moves the run to its terminal state. The run is FAILED only when
// errors were recorded and no invoice was generated; partial failures
// still count as SUCCEEDED with the error list preserved.
func (r *InvoiceRun) Finish(summary Summary, errs []RunError, now time.Time) error {
	if r.RunStatus != types.RunStatusRunning {
		return ierr.NewErrorf("cannot finish run in status %s", r.RunStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	r.Summary = summary
	r.ErrorDetails = errs
	r.FinishedAt = &now
	if len(errs) > 0 && summary.InvoicesGenerated == 0 {
		r.RunStatus = types.RunStatusFailed
		r.ErrorMessage = errs[0].Message
		return nil
	}
	r.RunStatus = types.RunStatusSucceeded
	if len(errs) > 0 {
		r.ErrorMessage = errs[0].Message
	}
	return nil
}

// Fail force-fails the run with full error context. Used for exceptions
// outside the per-customer loop.
func (r *InvoiceRun) Fail(err error, errs []RunError, now time.Time) {
	r.RunStatus = types.RunStatusFailed
	r.ErrorMessage = err.Error()
	r.ErrorDetails = errs
	r.FinishedAt = &now
}

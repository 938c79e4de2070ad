package credit

import (
	"time"

	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable movement on a credit. Entries are
// append-only: the BalanceAfter of entry N equals the BalanceAfter of
// entry N-1 plus/minus Amount depending on the entry type.
type LedgerEntry struct {
	ID           string                      `json:"id"`
	CreditID     string                      `json:"credit_id"`
	InvoiceID    *string                     `json:"invoice_id,omitempty"`
	Type         types.CreditLedgerEntryType `json:"type"`
	Amount       decimal.Decimal             `json:"amount"`
	BalanceAfter decimal.Decimal             `json:"balance_after"`
	Note         string                      `json:"note,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	CreatedBy    string                      `json:"created_by"`
}

func (e *LedgerEntry) Validate() error {
	if e.CreditID == "" {
		return ierr.NewError("ledger entry credit id is required").
			Mark(ierr.ErrValidation)
	}
	if e.Amount.IsNegative() {
		return ierr.NewError("ledger entry amount must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if e.BalanceAfter.IsNegative() {
		return ierr.NewError("ledger entry balance_after must be non-negative").
			Mark(ierr.ErrValidation)
	}
	switch e.Type {
	case types.CreditLedgerAllocation, types.CreditLedgerUsage,
		types.CreditLedgerAdjustment, types.CreditLedgerExpiry:
	default:
		return ierr.NewErrorf("invalid ledger entry type %s", e.Type).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Delta returns the signed balance movement of the entry: allocations add
// to the balance, every other entry type draws it down.
func (e *LedgerEntry) Delta() decimal.Decimal {
	if e.Type == types.CreditLedgerAllocation {
		return e.Amount
	}
	return e.Amount.Neg()
}

package service

import (
	"context"
	"time"

	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/domain/credit"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
)

// CreditApplication is what the burn-down engine took from one credit.
type CreditApplication struct {
	CreditID      string          `json:"credit_id"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// CreditService manages credits and burns them down against invoices.
type CreditService interface {
	// Create grants a credit and writes its ALLOCATION ledger entry.
	Create(ctx context.Context, c *credit.Credit) error
	Get(ctx context.Context, id string) (*credit.Credit, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*credit.Credit, error)
	ListLedger(ctx context.Context, creditID string) ([]*credit.LedgerEntry, error)

	// Expire zeroes a credit's remaining balance with an EXPIRY entry.
	Expire(ctx context.Context, creditID string, note string) error

	// ApplyToInvoice burns usable credits against an invoice total in
	// expiry order. Returns the total applied and the per-credit
	// applications. Insufficient credit is not an error; the engine
	// simply stops when balances run out.
	ApplyToInvoice(ctx context.Context, customerID, invoiceID, runID string, total decimal.Decimal, currency string, at time.Time) (decimal.Decimal, []CreditApplication, error)
}

type creditService struct {
	ServiceParams
}

func NewCreditService(params ServiceParams) CreditService {
	return &creditService{ServiceParams: params}
}

func (s *creditService) Create(ctx context.Context, c *credit.Credit) error {
	if c.ID == "" {
		c.ID = types.GenerateUUIDWithPrefix(types.UUIDPrefixCredit)
	}
	c.BaseModel = types.GetDefaultBaseModel(ctx)
	if _, err := s.CustomerRepo.Get(ctx, c.CustomerID); err != nil {
		return err
	}

	// The grant lands through the ledger: the credit is stored with a
	// zero balance and the ALLOCATION entry moves it to the full amount,
	// keeping the BalanceAfter chain rooted at zero.
	c.RemainingAmount = decimal.Zero
	if err := s.CreditRepo.Create(ctx, c); err != nil {
		return err
	}

	entry := &credit.LedgerEntry{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixCreditLedger),
		CreditID:     c.ID,
		Type:         types.CreditLedgerAllocation,
		Amount:       c.TotalAmount,
		BalanceAfter: c.TotalAmount,
		Note:         "initial allocation",
		CreatedAt:    time.Now().UTC(),
		CreatedBy:    types.GetActorID(ctx),
	}
	if err := s.CreditRepo.AppendLedgerEntry(ctx, entry); err != nil {
		return err
	}
	c.RemainingAmount = c.TotalAmount
	return nil
}

func (s *creditService) Get(ctx context.Context, id string) (*credit.Credit, error) {
	return s.CreditRepo.Get(ctx, id)
}

func (s *creditService) ListByCustomer(ctx context.Context, customerID string) ([]*credit.Credit, error) {
	return s.CreditRepo.ListByCustomer(ctx, customerID)
}

func (s *creditService) ListLedger(ctx context.Context, creditID string) ([]*credit.LedgerEntry, error) {
	return s.CreditRepo.ListLedger(ctx, creditID)
}

func (s *creditService) Expire(ctx context.Context, creditID string, note string) error {
	c, err := s.CreditRepo.Get(ctx, creditID)
	if err != nil {
		return err
	}
	if c.RemainingAmount.IsZero() {
		return nil
	}
	entry := &credit.LedgerEntry{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixCreditLedger),
		CreditID:     creditID,
		Type:         types.CreditLedgerExpiry,
		Amount:       c.RemainingAmount,
		BalanceAfter: decimal.Zero,
		Note:         note,
		CreatedAt:    time.Now().UTC(),
		CreatedBy:    types.GetActorID(ctx),
	}
	return s.CreditRepo.AppendLedgerEntry(ctx, entry)
}

func (s *creditService) ApplyToInvoice(ctx context.Context, customerID, invoiceID, runID string, total decimal.Decimal, currency string, at time.Time) (decimal.Decimal, []CreditApplication, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil, nil
	}
	if currency == types.CurrencyMixed {
		// Credits are single-currency; a mixed invoice keeps its full
		// total and the operator settles credits manually.
		s.Logger.Warnw("skipping credit application for mixed-currency invoice",
			"invoice_id", invoiceID,
			"customer_id", customerID)
		return decimal.Zero, nil, nil
	}

	credits, err := s.CreditRepo.ListUsable(ctx, customerID, at)
	if err != nil {
		return decimal.Zero, nil, err
	}

	outstanding := total
	applied := decimal.Zero
	var applications []CreditApplication

	for _, c := range credits {
		if outstanding.LessThanOrEqual(decimal.Zero) {
			break
		}
		if c.Currency != currency {
			continue
		}

		amount := decimal.Min(c.RemainingAmount, outstanding)
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		balanceAfter := c.RemainingAmount.Sub(amount)
		entry := &credit.LedgerEntry{
			ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixCreditLedger),
			CreditID:     c.ID,
			InvoiceID:    &invoiceID,
			Type:         types.CreditLedgerUsage,
			Amount:       amount,
			BalanceAfter: balanceAfter,
			CreatedAt:    at,
			CreatedBy:    types.GetActorID(ctx),
		}
		if err := s.CreditRepo.ApplyUsage(ctx, c.ID, entry); err != nil {
			return applied, applications, err
		}

		outstanding = outstanding.Sub(amount)
		applied = applied.Add(amount)
		app := CreditApplication{
			CreditID:      c.ID,
			AppliedAmount: amount,
			BalanceAfter:  balanceAfter,
		}
		applications = append(applications, app)
		s.Audit.Emit(ctx, audit.EventCreditApplied, runID, customerID, app)
	}

	return applied, applications, nil
}

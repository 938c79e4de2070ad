package service

import (
	"testing"
	"time"

	"github.com/cloudbill/cloudbill/internal/domain/credit"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CreditServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CreditService
	now     time.Time
}

func TestCreditService(t *testing.T) {
	suite.Run(t, new(CreditServiceSuite))
}

func (s *CreditServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCreditService(newTestServiceParams(&s.BaseServiceTestSuite, nil))
	s.now = time.Date(2025, 7, 31, 12, 0, 0, 0, time.UTC)

	ctx := s.GetContext()
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:             "cust_1",
		ExternalID:     "acme",
		Name:           "Acme",
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}))
}

func (s *CreditServiceSuite) grant(id string, amount float64, currency string, validTo *time.Time) *credit.Credit {
	c := &credit.Credit{
		ID:          id,
		CustomerID:  "cust_1",
		Type:        types.CreditTypePrepaid,
		Name:        id,
		TotalAmount: decimal.NewFromFloat(amount),
		Currency:    currency,
		ValidTo:     validTo,
	}
	s.NoError(s.service.Create(s.GetContext(), c))
	return c
}

func (s *CreditServiceSuite) TestCreateWritesAllocationEntry() {
	c := s.grant("cred_1", 500, "USD", nil)
	s.True(c.RemainingAmount.Equal(decimal.NewFromInt(500)))

	entries, err := s.service.ListLedger(s.GetContext(), "cred_1")
	s.NoError(err)
	s.Len(entries, 1)
	s.Equal(types.CreditLedgerAllocation, entries[0].Type)
	s.True(entries[0].Amount.Equal(decimal.NewFromInt(500)))
	s.True(entries[0].BalanceAfter.Equal(decimal.NewFromInt(500)))

	// The stored balance comes from the allocation entry, not the create.
	stored, err := s.service.Get(s.GetContext(), "cred_1")
	s.NoError(err)
	s.True(stored.RemainingAmount.Equal(decimal.NewFromInt(500)))
}

func (s *CreditServiceSuite) TestApplyPartialBurn() {
	s.grant("cred_1", 900, "USD", nil)

	applied, apps, err := s.service.ApplyToInvoice(s.GetContext(),
		"cust_1", "inv_1", "run_1", decimal.NewFromInt(50), "USD", s.now)
	s.NoError(err)
	s.True(applied.Equal(decimal.NewFromInt(50)))
	s.Len(apps, 1)
	s.True(apps[0].BalanceAfter.Equal(decimal.NewFromInt(850)))

	c, err := s.service.Get(s.GetContext(), "cred_1")
	s.NoError(err)
	s.True(c.RemainingAmount.Equal(decimal.NewFromInt(850)))

	entries, err := s.GetStores().CreditRepo.ListLedgerByInvoice(s.GetContext(), "inv_1")
	s.NoError(err)
	s.Len(entries, 1)
	s.Equal(types.CreditLedgerUsage, entries[0].Type)
	s.True(entries[0].Amount.Equal(decimal.NewFromInt(50)))
}

func (s *CreditServiceSuite) TestBurnDownOrderByExpiry() {
	late := s.now.AddDate(0, 6, 0)
	soon := s.now.AddDate(0, 1, 0)
	s.grant("cred_late", 1000, "USD", &late)
	s.grant("cred_soon", 100, "USD", &soon)

	applied, apps, err := s.service.ApplyToInvoice(s.GetContext(),
		"cust_1", "inv_1", "run_1", decimal.NewFromInt(150), "USD", s.now)
	s.NoError(err)
	s.True(applied.Equal(decimal.NewFromInt(150)))
	s.Len(apps, 2)

	// The soon-to-expire credit burns first and fully.
	s.Equal("cred_soon", apps[0].CreditID)
	s.True(apps[0].AppliedAmount.Equal(decimal.NewFromInt(100)))
	s.True(apps[0].BalanceAfter.IsZero())
	s.Equal("cred_late", apps[1].CreditID)
	s.True(apps[1].AppliedAmount.Equal(decimal.NewFromInt(50)))
}

func (s *CreditServiceSuite) TestInsufficientCreditIsNotAnError() {
	s.grant("cred_1", 30, "USD", nil)

	applied, apps, err := s.service.ApplyToInvoice(s.GetContext(),
		"cust_1", "inv_1", "run_1", decimal.NewFromInt(200), "USD", s.now)
	s.NoError(err)
	s.True(applied.Equal(decimal.NewFromInt(30)))
	s.Len(apps, 1)
}

func (s *CreditServiceSuite) TestCurrencyMismatchSkipped() {
	s.grant("cred_eur", 500, "EUR", nil)

	applied, apps, err := s.service.ApplyToInvoice(s.GetContext(),
		"cust_1", "inv_1", "run_1", decimal.NewFromInt(100), "USD", s.now)
	s.NoError(err)
	s.True(applied.IsZero())
	s.Empty(apps)
}

func (s *CreditServiceSuite) TestMixedCurrencyInvoiceSkipsCredits() {
	s.grant("cred_1", 500, "USD", nil)

	applied, apps, err := s.service.ApplyToInvoice(s.GetContext(),
		"cust_1", "inv_1", "run_1", decimal.NewFromInt(100), types.CurrencyMixed, s.now)
	s.NoError(err)
	s.True(applied.IsZero())
	s.Empty(apps)
}

func (s *CreditServiceSuite) TestExpiredCreditUnusable() {
	gone := s.now.AddDate(0, 0, -1)
	s.grant("cred_old", 500, "USD", &gone)

	applied, _, err := s.service.ApplyToInvoice(s.GetContext(),
		"cust_1", "inv_1", "run_1", decimal.NewFromInt(100), "USD", s.now)
	s.NoError(err)
	s.True(applied.IsZero())
}

func (s *CreditServiceSuite) TestExpireZeroesBalance() {
	s.grant("cred_1", 500, "USD", nil)
	s.NoError(s.service.Expire(s.GetContext(), "cred_1", "contract ended"))

	c, err := s.service.Get(s.GetContext(), "cred_1")
	s.NoError(err)
	s.True(c.RemainingAmount.IsZero())

	entries, err := s.service.ListLedger(s.GetContext(), "cred_1")
	s.NoError(err)
	s.Len(entries, 2)
	s.Equal(types.CreditLedgerExpiry, entries[1].Type)
}

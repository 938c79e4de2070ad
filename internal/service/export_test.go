package service

import (
	"testing"

	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/testutil"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InvoiceService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceService(newTestServiceParams(&s.BaseServiceTestSuite, nil))

	ctx := s.GetContext()
	s.NoError(s.GetStores().CustomerRepo.Create(ctx, &customer.Customer{
		ID:             "cust_1",
		ExternalID:     "acme",
		Name:           "Acme",
		Currency:       "USD",
		CustomerStatus: types.CustomerStatusActive,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}))
	s.NoError(s.GetStores().InvoiceRepo.CreateWithLineItems(ctx, &invoice.Invoice{
		ID:            "inv_1",
		RunID:         "run_1",
		CustomerID:    "cust_1",
		InvoiceMonth:  types.BillingMonth("2025-07"),
		InvoiceNumber: "CB-202507-ACME-0001",
		Subtotal:      decimal.NewFromInt(140),
		CreditAmount:  decimal.Zero,
		Total:         decimal.NewFromInt(140),
		Currency:      "USD",
		InvoiceStatus: types.InvoiceStatusDraft,
		LineItems: []*invoice.InvoiceLineItem{{
			ID:           types.GenerateUUID(),
			SkuGroupID:   "COMPUTE",
			SkuGroupCode: "COMPUTE",
			RawAmount:    decimal.NewFromInt(140),
			PricedAmount: decimal.NewFromInt(140),
			EntryCount:   2,
			Currency:     "USD",
			BaseModel:    types.GetDefaultBaseModel(ctx),
		}},
		BaseModel: types.GetDefaultBaseModel(ctx),
	}))
}

func (s *InvoiceServiceSuite) TestExportAggregate() {
	export, err := s.service.Export(s.GetContext(), "inv_1")
	s.NoError(err)
	s.Equal("inv_1", export.Invoice.ID)
	s.Equal("cust_1", export.Customer.ID)
	s.Len(export.Invoice.LineItems, 1)
	// No credits were applied and no snapshot was taken.
	s.Empty(export.CreditEntries)
	s.Nil(export.Snapshot)
}

func (s *InvoiceServiceSuite) TestGetByNumber() {
	inv, err := s.service.GetByNumber(s.GetContext(), "CB-202507-ACME-0001")
	s.NoError(err)
	s.Equal("inv_1", inv.ID)

	_, err = s.service.GetByNumber(s.GetContext(), "CB-202507-ACME-9999")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestLock() {
	locked, err := s.service.Lock(s.GetContext(), "inv_1")
	s.NoError(err)
	s.NotNil(locked.LockedAt)

	// A second lock is rejected.
	_, err = s.service.Lock(s.GetContext(), "inv_1")
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestLockedInvoiceRejectsMutation() {
	_, err := s.service.Lock(s.GetContext(), "inv_1")
	s.NoError(err)

	inv, err := s.service.Get(s.GetContext(), "inv_1")
	s.NoError(err)
	inv.Total = decimal.NewFromInt(1)
	inv.Subtotal = decimal.NewFromInt(1)

	err = s.GetStores().InvoiceRepo.Update(s.GetContext(), inv)
	s.True(ierr.IsInvalidOperation(err))
}

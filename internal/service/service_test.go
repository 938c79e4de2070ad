package service

import (
	"github.com/cloudbill/cloudbill/internal/httpclient"
	"github.com/cloudbill/cloudbill/internal/provider"
	"github.com/cloudbill/cloudbill/internal/testutil"
)

// newTestServiceParams bundles a suite's stores into the shared service
// dependency struct.
func newTestServiceParams(base *testutil.BaseServiceTestSuite, providers *provider.Registry) ServiceParams {
	stores := base.GetStores()
	return ServiceParams{
		Logger:             base.GetLogger(),
		Config:             base.GetConfig(),
		Cache:              base.GetCache(),
		CustomerRepo:       stores.CustomerRepo,
		ProjectRepo:        stores.ProjectRepo,
		BindingRepo:        stores.BindingRepo,
		CostDataRepo:       stores.CostDataRepo,
		SkuGroupRepo:       stores.SkuGroupRepo,
		SpecialRuleRepo:    stores.SpecialRuleRepo,
		PricingRepo:        stores.PricingRepo,
		CreditRepo:         stores.CreditRepo,
		InvoiceRepo:        stores.InvoiceRepo,
		InvoiceRunRepo:     stores.InvoiceRunRepo,
		ConfigSnapshotRepo: stores.ConfigSnapshotRepo,
		AnalyticsRepo:      stores.AnalyticsRepo,
		Providers:          providers,
		Audit:              base.GetAudit(),
		Client:             httpclient.NewDefaultClient(),
	}
}

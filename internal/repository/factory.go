package repository

import (
	"github.com/cloudbill/cloudbill/internal/domain/analytics"
	"github.com/cloudbill/cloudbill/internal/domain/configsnapshot"
	"github.com/cloudbill/cloudbill/internal/domain/costdata"
	"github.com/cloudbill/cloudbill/internal/domain/credit"
	"github.com/cloudbill/cloudbill/internal/domain/customer"
	"github.com/cloudbill/cloudbill/internal/domain/invoice"
	"github.com/cloudbill/cloudbill/internal/domain/invoicerun"
	"github.com/cloudbill/cloudbill/internal/domain/pricing"
	"github.com/cloudbill/cloudbill/internal/domain/project"
	"github.com/cloudbill/cloudbill/internal/domain/skugroup"
	"github.com/cloudbill/cloudbill/internal/domain/specialrule"
	"github.com/cloudbill/cloudbill/internal/repository/memory"
)

// Constructors below are what the fx graph consumes. Each returns the
// domain interface so a SQL-backed implementation can slot in without
// touching the service layer.

func NewCustomerRepository() customer.Repository {
	return memory.NewInMemoryCustomerStore()
}

func NewProjectRepository() project.Repository {
	return memory.NewInMemoryProjectStore()
}

func NewBindingRepository() project.BindingRepository {
	return memory.NewInMemoryBindingStore()
}

func NewCostDataRepository() costdata.Repository {
	return memory.NewInMemoryCostDataStore()
}

func NewSkuGroupRepository() skugroup.Repository {
	return memory.NewInMemorySkuGroupStore()
}

func NewSpecialRuleRepository() specialrule.Repository {
	return memory.NewInMemorySpecialRuleStore()
}

func NewPricingRepository() pricing.Repository {
	return memory.NewInMemoryPricingStore()
}

func NewCreditRepository() credit.Repository {
	return memory.NewInMemoryCreditStore()
}

func NewInvoiceRepository() invoice.Repository {
	return memory.NewInMemoryInvoiceStore()
}

func NewInvoiceRunRepository() invoicerun.Repository {
	return memory.NewInMemoryInvoiceRunStore()
}

func NewConfigSnapshotRepository() configsnapshot.Repository {
	return memory.NewInMemoryConfigSnapshotStore()
}

func NewAnalyticsRepository() analytics.Repository {
	return memory.NewInMemoryAnalyticsStore()
}

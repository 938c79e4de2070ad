package service

import (
	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/cache"
	"github.com/cloudbill/cloudbill/internal/config"
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
	"github.com/cloudbill/cloudbill/internal/httpclient"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/provider"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	// Repositories
	CustomerRepo       customer.Repository
	ProjectRepo        project.Repository
	BindingRepo        project.BindingRepository
	CostDataRepo       costdata.Repository
	SkuGroupRepo       skugroup.Repository
	SpecialRuleRepo    specialrule.Repository
	PricingRepo        pricing.Repository
	CreditRepo         credit.Repository
	InvoiceRepo        invoice.Repository
	InvoiceRunRepo     invoicerun.Repository
	ConfigSnapshotRepo configsnapshot.Repository
	AnalyticsRepo      analytics.Repository

	// Providers and side channels
	Providers *provider.Registry
	Audit     audit.Publisher
	Client    httpclient.Client
}

// NewServiceParams assembles the shared dependency bundle for fx.
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	cache cache.Cache,
	customerRepo customer.Repository,
	projectRepo project.Repository,
	bindingRepo project.BindingRepository,
	costDataRepo costdata.Repository,
	skuGroupRepo skugroup.Repository,
	specialRuleRepo specialrule.Repository,
	pricingRepo pricing.Repository,
	creditRepo credit.Repository,
	invoiceRepo invoice.Repository,
	invoiceRunRepo invoicerun.Repository,
	configSnapshotRepo configsnapshot.Repository,
	analyticsRepo analytics.Repository,
	providers *provider.Registry,
	auditPublisher audit.Publisher,
	client httpclient.Client,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		Cache:              cache,
		CustomerRepo:       customerRepo,
		ProjectRepo:        projectRepo,
		BindingRepo:        bindingRepo,
		CostDataRepo:       costDataRepo,
		SkuGroupRepo:       skuGroupRepo,
		SpecialRuleRepo:    specialRuleRepo,
		PricingRepo:        pricingRepo,
		CreditRepo:         creditRepo,
		InvoiceRepo:        invoiceRepo,
		InvoiceRunRepo:     invoiceRunRepo,
		ConfigSnapshotRepo: configSnapshotRepo,
		AnalyticsRepo:      analyticsRepo,
		Providers:          providers,
		Audit:              auditPublisher,
		Client:             client,
	}
}

package testutil

import (
	"context"
	"time"

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
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/repository/memory"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
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
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	audit  *RecordingAuditPublisher
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test. Stores are rebuilt from scratch
// so tests never see each other's data.
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxActorID, types.DefaultActorID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		CustomerRepo:       memory.NewInMemoryCustomerStore(),
		ProjectRepo:        memory.NewInMemoryProjectStore(),
		BindingRepo:        memory.NewInMemoryBindingStore(),
		CostDataRepo:       memory.NewInMemoryCostDataStore(),
		SkuGroupRepo:       memory.NewInMemorySkuGroupStore(),
		SpecialRuleRepo:    memory.NewInMemorySpecialRuleStore(),
		PricingRepo:        memory.NewInMemoryPricingStore(),
		CreditRepo:         memory.NewInMemoryCreditStore(),
		InvoiceRepo:        memory.NewInMemoryInvoiceStore(),
		InvoiceRunRepo:     memory.NewInMemoryInvoiceRunStore(),
		ConfigSnapshotRepo: memory.NewInMemoryConfigSnapshotStore(),
		AnalyticsRepo:      memory.NewInMemoryAnalyticsStore(),
	}
	s.audit = NewRecordingAuditPublisher()
	s.cache = cache.NewInMemoryCache(s.config)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetAudit returns the recording audit publisher
func (s *BaseServiceTestSuite) GetAudit() *RecordingAuditPublisher {
	return s.audit
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

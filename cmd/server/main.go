package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloudbill/cloudbill/internal/api"
	v1 "github.com/cloudbill/cloudbill/internal/api/v1"
	"github.com/cloudbill/cloudbill/internal/audit"
	"github.com/cloudbill/cloudbill/internal/cache"
	"github.com/cloudbill/cloudbill/internal/config"
	"github.com/cloudbill/cloudbill/internal/httpclient"
	"github.com/cloudbill/cloudbill/internal/logger"
	"github.com/cloudbill/cloudbill/internal/provider"
	"github.com/cloudbill/cloudbill/internal/pubsub"
	pubsubmemory "github.com/cloudbill/cloudbill/internal/pubsub/memory"
	"github.com/cloudbill/cloudbill/internal/repository"
	"github.com/cloudbill/cloudbill/internal/service"
	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// PubSub and audit stream
			pubsubmemory.NewPubSub,
			provideAuditPublisher,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Provider adapters
			provideProviderRegistry,

			// Repositories
			repository.NewCustomerRepository,
			repository.NewProjectRepository,
			repository.NewBindingRepository,
			repository.NewCostDataRepository,
			repository.NewSkuGroupRepository,
			repository.NewSpecialRuleRepository,
			repository.NewPricingRepository,
			repository.NewCreditRepository,
			repository.NewInvoiceRepository,
			repository.NewInvoiceRunRepository,
			repository.NewConfigSnapshotRepository,
			repository.NewAnalyticsRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewIngestionService,
			service.NewSkuGroupService,
			service.NewSpecialRuleService,
			service.NewPricingService,
			service.NewCreditService,
			service.NewAnalyticsService,
			service.NewInvoiceService,
			service.NewInvoiceRunService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideAuditPublisher(ps pubsub.PubSub, log *logger.Logger) audit.Publisher {
	return audit.NewPublisher(ps, log)
}

func provideProviderRegistry(
	cfg *config.Configuration,
	client httpclient.Client,
	c cache.Cache,
	log *logger.Logger,
) (*provider.Registry, error) {
	adapters := []provider.Adapter{
		provider.NewGCPAdapter(cfg, client, log),
		provider.NewOpenAIAdapter(cfg, client, c, log),
		provider.NewCustomAdapter(cfg, client, log),
	}

	// The AWS adapter loads the SDK credential chain, so it is only
	// constructed when a report bucket is configured.
	if cfg.Providers.AWS.Bucket != "" {
		aws, err := provider.NewAWSAdapter(context.Background(), cfg, log)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, aws)
	}

	return provider.NewRegistry(adapters...), nil
}

func provideHandlers(
	log *logger.Logger,
	ingestionService service.IngestionService,
	invoiceRunService service.InvoiceRunService,
	invoiceService service.InvoiceService,
	analyticsService service.AnalyticsService,
) api.Handlers {
	return api.Handlers{
		Health:     v1.NewHealthHandler(log),
		Ingestion:  v1.NewIngestionHandler(ingestionService, log),
		InvoiceRun: v1.NewInvoiceRunHandler(invoiceRunService, log),
		Invoice:    v1.NewInvoiceHandler(invoiceService, log),
		Analytics:  v1.NewAnalyticsHandler(analyticsService, log),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startAuditLogger(lc, ps, log)
	case types.ModeServer:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startAuditLogger(lc, ps, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

// startAuditLogger drains the audit topic into the structured log. It is
// the reference consumer; real deployments replace it with a durable sink.
func startAuditLogger(
	lc fx.Lifecycle,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			messages, err := ps.Subscribe(ctx, audit.Topic)
			if err != nil {
				cancel()
				return err
			}
			go func() {
				for msg := range messages {
					var event audit.Event
					if err := json.Unmarshal(msg.Payload, &event); err != nil {
						log.Errorw("malformed audit event", "message_id", msg.UUID, "error", err)
						msg.Ack()
						continue
					}
					log.Infow("audit event",
						"event_type", event.Type,
						"run_id", event.RunID,
						"customer_id", event.CustomerID,
						"actor", event.Actor)
					msg.Ack()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

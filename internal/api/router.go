package api

import (
	v1 "github.com/cloudbill/cloudbill/internal/api/v1"
	"github.com/cloudbill/cloudbill/internal/rest/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handlers struct {
	Health     *v1.HealthHandler
	Ingestion  *v1.IngestionHandler
	InvoiceRun *v1.InvoiceRunHandler
	Invoice    *v1.InvoiceHandler
	Analytics  *v1.AnalyticsHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", handlers.Health.Health)

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Ingestion routes
	ingestion := router.Group("/ingestion")
	{
		ingestion.POST("", handlers.Ingestion.Ingest)
		ingestion.POST("/all", handlers.Ingestion.IngestAll)
		ingestion.POST("/upload/:provider", handlers.Ingestion.Upload)
		ingestion.GET("/batches", handlers.Ingestion.ListBatches)
		ingestion.GET("/batches/:id", handlers.Ingestion.GetBatch)
	}

	// Invoice run routes
	runs := router.Group("/runs")
	{
		runs.POST("", handlers.InvoiceRun.Trigger)
		runs.GET("", handlers.InvoiceRun.ListByMonth)
		runs.GET("/:id", handlers.InvoiceRun.Get)
	}

	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.GET("", handlers.Invoice.List)
		invoices.GET("/:id", handlers.Invoice.Get)
		invoices.GET("/:id/export", handlers.Invoice.Export)
		invoices.POST("/:id/lock", handlers.Invoice.Lock)
		invoices.GET("/number/:number", handlers.Invoice.GetByNumber)
	}

	// Analytics routes
	analytics := router.Group("/analytics")
	{
		analytics.GET("/summaries", handlers.Analytics.GetSummaries)
		analytics.GET("/customers", handlers.Analytics.GetCustomerSnapshots)
		analytics.GET("/providers", handlers.Analytics.GetProviderSnapshots)
		analytics.POST("/rebuild", handlers.Analytics.Rebuild)
	}
}

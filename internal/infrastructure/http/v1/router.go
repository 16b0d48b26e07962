// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"invoicebook/internal/domain/invoice"
	"invoicebook/internal/infrastructure/http/v1/handlers"
	"invoicebook/internal/infrastructure/http/v1/middleware"
	"invoicebook/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// InvoiceService serves every /invoices route
	InvoiceService *invoice.Service

	// Store is pinged by the readiness check
	Store handlers.Pinger

	// Backend names the storage backend in health output
	Backend string

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.Backend, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		invoiceHandler := handlers.NewInvoiceHandler(handlers.NewBaseHandler(), cfg.InvoiceService)
		RegisterInvoiceRoutes(protected.Group("/invoices"), invoiceHandler)
	}

	return router
}

// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pharmledger/internal/app"
	"pharmledger/internal/core/idempotency"
	"pharmledger/internal/domain/auth"
	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/domain/catalogs/supplier"
	"pharmledger/internal/infrastructure/http/v1/dto"
	"pharmledger/internal/infrastructure/http/v1/handlers"
	"pharmledger/internal/infrastructure/http/v1/middleware"
	"pharmledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services is the assembled domain layer
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation; defaults to Services.JWT
	JWTValidator middleware.JWTValidator

	// DB and Cache answer readiness probes; Cache may be nil
	DB    handlers.Pinger
	Cache handlers.Pinger

	// Pool reports connection stats on /health/info; may be nil
	Pool handlers.PoolStatter

	// Idempotency stores Idempotency-Key results for POST /sales; nil disables it
	Idempotency idempotency.Store

	// ScanQueue queues alert scans for POST /alerts/scan; may be nil
	ScanQueue handlers.ScanEnqueuer

	// Audit serves entity history to administrators; may be nil
	Audit handlers.AuditReader

	// LoginRateLimit is requests per second per client IP; zero disables it
	LoginRateLimit float64
	LoginRateBurst int

	Version string
	Debug   bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTValidator == nil {
		cfg.JWTValidator = cfg.Services.JWT
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Cache, cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerCatalogRoutes(protected, cfg)
		registerMedicineRoutes(protected, cfg)
		registerStockRoutes(protected, cfg)
		registerSaleRoutes(protected, cfg)
		registerPrescriptionRoutes(protected, cfg)
		registerReportRoutes(protected, cfg)
		registerAuditRoutes(protected, cfg)
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	authHandler := handlers.NewAuthHandler(handlers.NewBaseHandler(), cfg.Services.Auth)

	publicAuth := rg.Group("/auth")
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	var throttle []gin.HandlerFunc
	if cfg.LoginRateLimit > 0 {
		throttle = append(throttle, middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst).Middleware())
	}
	authHandler.RegisterRoutes(publicAuth, protectedAuth, throttle...)
}

// registerCatalogRoutes registers the category and supplier catalogues.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	// --- CATEGORIES ---
	{
		handler := handlers.NewCatalogHandler(baseHandler, handlers.CatalogHandlerConfig[*category.Category, dto.CategoryRequest, dto.CategoryResponse]{
			Service:   cfg.Services.Categories.CatalogService,
			MapCreate: dto.CategoryRequest.ToEntity,
			MapUpdate: dto.CategoryRequest.Apply,
			MapToDTO:  dto.FromCategory,
		})
		RegisterCatalogRoutes(rg.Group("/categories"), handler, auth.PermCatalogRead, auth.PermCatalogWrite)
	}

	// --- SUPPLIERS ---
	{
		handler := handlers.NewCatalogHandler(baseHandler, handlers.CatalogHandlerConfig[*supplier.Supplier, dto.SupplierRequest, dto.SupplierResponse]{
			Service:   cfg.Services.Suppliers.CatalogService,
			MapCreate: dto.SupplierRequest.ToEntity,
			MapUpdate: dto.SupplierRequest.Apply,
			MapToDTO:  dto.FromSupplier,
		})
		RegisterCatalogRoutes(rg.Group("/suppliers"), handler, auth.PermCatalogRead, auth.PermCatalogWrite)
	}
}

// registerMedicineRoutes registers the medicine catalogue and its stock operations.
func registerMedicineRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewMedicineHandler(handlers.NewBaseHandler(), cfg.Services.Medicines, cfg.Services.Stock)
	read := middleware.RequirePermission(auth.PermCatalogRead)
	write := middleware.RequirePermission(auth.PermCatalogWrite)

	g := rg.Group("/medicines")
	g.GET("", read, h.List)
	g.POST("", write, h.Create)
	g.GET("/low-stock", read, h.LowStock)
	g.GET("/expiring", read, h.Expiring)
	g.GET("/:id", read, h.Get)
	g.PUT("/:id", write, h.Update)
	g.DELETE("/:id", write, h.Delete)
	g.POST("/:id/archive", write, h.Archive)
	g.POST("/:id/adjust", middleware.RequirePermission(auth.PermStockAdjust), h.Adjust)
	g.GET("/:id/movements", middleware.RequirePermission(auth.PermStockRead), h.Movements)
}

// registerStockRoutes registers the movement ledger.
func registerStockRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewStockHandler(handlers.NewBaseHandler(), cfg.Services.Stock)
	read := middleware.RequirePermission(auth.PermStockRead)

	g := rg.Group("/stock")
	g.GET("/movements", read, h.ListMovements)
	g.GET("/totals", read, h.Totals)
}

// registerSaleRoutes registers sales. Only recording a sale honours Idempotency-Key.
func registerSaleRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewSaleHandler(handlers.NewBaseHandler(), cfg.Services.Sales)
	read := middleware.RequirePermission(auth.PermSalesRead)

	record := []gin.HandlerFunc{middleware.RequirePermission(auth.PermSalesCreate)}
	if cfg.Idempotency != nil {
		record = append(record, middleware.Idempotency(cfg.Idempotency))
	}

	g := rg.Group("/sales")
	g.GET("", read, h.List)
	g.POST("", append(record, h.Record)...)
	g.GET("/export", middleware.RequirePermission(auth.PermReportsRead), h.Export)
	g.GET("/:id", read, h.Get)
}

// registerPrescriptionRoutes registers the prescription register.
func registerPrescriptionRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewPrescriptionHandler(handlers.NewBaseHandler(), cfg.Services.Prescriptions)
	read := middleware.RequirePermission(auth.PermPrescriptionsRead)

	g := rg.Group("/prescriptions")
	g.GET("", read, h.List)
	g.POST("", middleware.RequirePermission(auth.PermPrescriptionsWrite), h.Create)
	g.GET("/:id", read, h.Get)
}

// registerReportRoutes registers the dashboard, reports and alerts.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewReportsHandler(handlers.NewBaseHandler(), cfg.Services.Reports, cfg.Services.Alerts, cfg.ScanQueue)
	read := middleware.RequirePermission(auth.PermReportsRead)

	rg.GET("/dashboard", read, h.Dashboard)
	rg.GET("/reports/sales-summary", read, h.SalesSummary)

	alerts := rg.Group("/alerts")
	alerts.GET("", middleware.RequirePermission(auth.PermStockRead), h.Alerts)
	alerts.POST("/scan", middleware.RequirePermission(auth.PermStockAdjust), h.QueueScan)
}

// registerAuditRoutes exposes entity history to administrators.
func registerAuditRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.Audit == nil {
		return
	}
	h := handlers.NewAuditHandler(handlers.NewBaseHandler(), cfg.Audit)
	rg.GET("/audit/:entityType/:id", middleware.RequireRole(string(auth.RoleAdmin)), h.History)
}

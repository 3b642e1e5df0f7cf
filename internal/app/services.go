// Package app assembles the ledger's domain services from a storage backend.
package app

import (
	"context"
	"fmt"
	"time"

	"pharmledger/internal/core/numerator"
	"pharmledger/internal/core/tx"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/alerts"
	"pharmledger/internal/domain/auth"
	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/catalogs/supplier"
	"pharmledger/internal/domain/documents/prescription"
	"pharmledger/internal/domain/documents/sale"
	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/domain/reports"
	"pharmledger/pkg/logger"
)

// Repositories is one storage backend.
type Repositories struct {
	Categories    category.Repository
	Suppliers     supplier.Repository
	Medicines     medicine.Repository
	Movements     stock.Repository
	Sales         sale.Repository
	Prescriptions prescription.Repository
	Users         auth.UserRepository
	Reports       reports.Repository
	Numerator     numerator.Generator
	TxManager     tx.Manager
	Audit         domain.AuditRecorder // optional
}

// AlertScheduler queues an asynchronous alert scan.
type AlertScheduler interface {
	ScheduleScan(ctx context.Context) error
}

// Options tunes the services.
type Options struct {
	JWT              auth.JWTConfig
	Auth             auth.ServiceConfig // zero value uses auth.DefaultServiceConfig
	Cache            reports.Cache      // nil disables dashboard caching
	CacheTTL         time.Duration
	ExpiryWindowDays int
	AlertRules       []alerts.Rule // nil uses the built-in rules
	Scheduler        AlertScheduler
}

// Services is the assembled domain layer.
type Services struct {
	Categories    *category.Service
	Suppliers     *supplier.Service
	Medicines     *medicine.Service
	Stock         *stock.Service
	Sales         *sale.Service
	Prescriptions *prescription.Service
	Auth          *auth.Service
	JWT           *auth.JWTService
	Reports       *reports.Service
	Alerts        *alerts.Service
}

// NewServices builds every service over repos and wires the change hooks.
func NewServices(repos Repositories, opts Options) (*Services, error) {
	rules := opts.AlertRules
	if rules == nil {
		rules = alerts.DefaultRules()
	}
	engine, err := alerts.NewEngine(rules, opts.ExpiryWindowDays)
	if err != nil {
		return nil, fmt.Errorf("alert rules: %w", err)
	}

	stockSvc := stock.NewService(repos.Movements)
	medicines := medicine.NewService(medicine.Config{
		Repo:       repos.Medicines,
		Categories: repos.Categories,
		Suppliers:  repos.Suppliers,
		Movements:  stockSvc,
		TxManager:  repos.TxManager,
		Audit:      repos.Audit,
	})
	prescriptions := prescription.NewService(repos.Prescriptions, repos.Numerator, repos.TxManager, repos.Audit)
	jwtSvc := auth.NewJWTService(opts.JWT)
	if opts.Auth == (auth.ServiceConfig{}) {
		opts.Auth = auth.DefaultServiceConfig()
	}

	s := &Services{
		Categories:    category.NewService(repos.Categories, repos.TxManager, repos.Audit),
		Suppliers:     supplier.NewService(repos.Suppliers, repos.TxManager, repos.Audit),
		Medicines:     medicines,
		Stock:         stockSvc,
		Prescriptions: prescriptions,
		Sales: sale.NewService(sale.Config{
			Repo:          repos.Sales,
			Stock:         medicines,
			Prescriptions: prescriptions,
			Numerator:     repos.Numerator,
			TxManager:     repos.TxManager,
			Audit:         repos.Audit,
		}),
		Auth: auth.NewService(repos.Users, repos.TxManager, jwtSvc, opts.Auth),
		JWT:  jwtSvc,
		Reports: reports.NewService(repos.Reports, reports.Options{
			Cache:            opts.Cache,
			TTL:              opts.CacheTTL,
			ExpiryWindowDays: opts.ExpiryWindowDays,
		}),
		Alerts: alerts.NewService(medicines, engine),
	}
	s.registerHooks(opts.Scheduler)
	return s, nil
}

// registerHooks drops the cached dashboard on every committed stock change
// (sales publish one per line) and queues an alert scan after each sale.
func (s *Services) registerHooks(scheduler AlertScheduler) {
	s.Medicines.Hooks().OnAfterUpdate(func(ctx context.Context, _ medicine.StockChange) error {
		return s.Reports.InvalidateDashboard(ctx)
	})
	if scheduler == nil {
		return
	}
	s.Sales.Hooks().OnAfterCreate(func(ctx context.Context, sl *sale.Sale) error {
		if err := scheduler.ScheduleScan(ctx); err != nil {
			logger.Warn(ctx, "alert scan not queued", "sale_id", sl.ID, "error", err)
		}
		return nil
	})
}

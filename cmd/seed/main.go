// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"pharmledger/internal/app"
	"pharmledger/internal/config"
	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/catalogs/supplier"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}
	types.SetBusinessLocation(cfg.App.Location())

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	services, err := app.NewServices(app.PostgresRepositories(txManager, audit), app.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	password := cfg.Security.AdminPassword
	if password == "" {
		password = "Admin123!"
	}
	created, err := services.Auth.EnsureAdmin(ctx, cfg.Security.AdminEmail, password)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}
	if created {
		log.Infow("admin user created", "email", cfg.Security.AdminEmail)
	} else {
		log.Infow("admin user already exists", "email", cfg.Security.AdminEmail)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, services, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

type demoMedicine struct {
	name         string
	generic      string
	category     string
	price        string
	cost         string
	quantity     int
	reorder      int
	expiresIn    time.Duration
	prescription bool
}

var (
	demoCategories = []string{"Analgesics", "Antibiotics", "Antihistamines", "Vitamins"}

	demoSuppliers = []struct{ name, contact, phone, email string }{
		{"MedSupply Wholesale", "Anna Petrova", "+1 555 0100", "orders@medsupply.example"},
		{"NorthPharm Distribution", "James Reid", "+1 555 0142", "sales@northpharm.example"},
	}

	demoMedicines = []demoMedicine{
		{"Paracetamol 500mg", "paracetamol", "Analgesics", "4.50", "2.10", 240, 50, 540 * 24 * time.Hour, false},
		{"Ibuprofen 400mg", "ibuprofen", "Analgesics", "6.20", "3.00", 120, 40, 400 * 24 * time.Hour, false},
		{"Amoxicillin 500mg", "amoxicillin", "Antibiotics", "12.90", "7.40", 60, 20, 200 * 24 * time.Hour, true},
		{"Azithromycin 250mg", "azithromycin", "Antibiotics", "18.00", "11.25", 8, 15, 20 * 24 * time.Hour, true},
		{"Loratadine 10mg", "loratadine", "Antihistamines", "7.80", "3.90", 90, 30, 25 * 24 * time.Hour, false},
		{"Vitamin D3 1000IU", "cholecalciferol", "Vitamins", "9.99", "4.20", 0, 25, 720 * 24 * time.Hour, false},
	}
)

func seedDemoData(ctx context.Context, services *app.Services, log *logger.Logger) error {
	categories := make(map[string]id.ID, len(demoCategories))
	for _, name := range demoCategories {
		categoryID, err := ensureCategory(ctx, services, name)
		if err != nil {
			return err
		}
		categories[name] = categoryID
	}
	log.Infow("categories seeded", "count", len(categories))

	supplierIDs := make([]id.ID, 0, len(demoSuppliers))
	for _, s := range demoSuppliers {
		sup := supplier.NewSupplier(s.name)
		sup.ContactPerson, sup.Phone, sup.Email = &s.contact, &s.phone, &s.email
		err := services.Suppliers.Create(ctx, sup)
		if apperror.IsDuplicate(err) {
			existing, lookupErr := findByName(ctx, services.Suppliers.List, s.name)
			if lookupErr != nil {
				return lookupErr
			}
			supplierIDs = append(supplierIDs, existing)
			continue
		}
		if err != nil {
			return fmt.Errorf("seed supplier %q: %w", s.name, err)
		}
		supplierIDs = append(supplierIDs, sup.ID)
	}
	log.Infow("suppliers seeded", "count", len(supplierIDs))

	existing, err := services.Medicines.List(ctx, medicine.Filter{ListFilter: domain.ListFilter{Limit: 1, IncludeArchived: true}})
	if err != nil {
		return fmt.Errorf("check medicines: %w", err)
	}
	if existing.TotalCount > 0 {
		log.Infow("medicines already present, skipping", "count", existing.TotalCount)
		return nil
	}

	now := time.Now().UTC()
	for i, d := range demoMedicines {
		m := medicine.NewMedicine(d.name, types.MustMoney(d.price), now.Add(d.expiresIn))
		generic := d.generic
		categoryID := categories[d.category]
		supplierID := supplierIDs[i%len(supplierIDs)]
		batch := fmt.Sprintf("B%s-%03d", now.Format("0601"), i+1)

		m.GenericName = &generic
		m.CategoryID = &categoryID
		m.SupplierID = &supplierID
		m.BatchNumber = &batch
		m.UnitCost = types.MustMoney(d.cost)
		m.Quantity = d.quantity
		m.ReorderLevel = d.reorder
		m.RequiresPrescription = d.prescription

		if _, err := services.Medicines.Upsert(ctx, m); err != nil {
			return fmt.Errorf("seed medicine %q: %w", d.name, err)
		}
	}
	log.Infow("medicines seeded", "count", len(demoMedicines))
	return nil
}

func ensureCategory(ctx context.Context, services *app.Services, name string) (id.ID, error) {
	c, err := services.Categories.CreateCategory(ctx, name, nil)
	if apperror.IsDuplicate(err) {
		return findByName(ctx, services.Categories.List, name)
	}
	if err != nil {
		return id.Nil(), fmt.Errorf("seed category %q: %w", name, err)
	}
	return c.ID, nil
}

func findByName[T interface {
	GetID() id.ID
	GetName() string
}](ctx context.Context, list func(context.Context, domain.ListFilter) (domain.ListResult[T], error), name string) (id.ID, error) {
	res, err := list(ctx, domain.ListFilter{Search: name, Limit: 50, IncludeArchived: true})
	if err != nil {
		return id.Nil(), err
	}
	for _, item := range res.Items {
		if strings.EqualFold(item.GetName(), name) {
			return item.GetID(), nil
		}
	}
	return id.Nil(), fmt.Errorf("%q reported as duplicate but not found", name)
}

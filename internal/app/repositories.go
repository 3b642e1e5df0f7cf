package app

import (
	"pharmledger/internal/infrastructure/numerator"
	"pharmledger/internal/infrastructure/storage/memory"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/internal/infrastructure/storage/postgres/auth_repo"
	"pharmledger/internal/infrastructure/storage/postgres/catalog_repo"
	"pharmledger/internal/infrastructure/storage/postgres/document_repo"
	"pharmledger/internal/infrastructure/storage/postgres/register_repo"
	"pharmledger/internal/infrastructure/storage/postgres/report_repo"
)

// PostgresRepositories wires the PostgreSQL repositories over txm.
// audit may be nil.
func PostgresRepositories(txm *postgres.TxManager, audit *postgres.AuditService) Repositories {
	repos := Repositories{
		Categories:    catalog_repo.NewCategoryRepo(txm),
		Suppliers:     catalog_repo.NewSupplierRepo(txm),
		Medicines:     catalog_repo.NewMedicineRepo(txm),
		Movements:     register_repo.NewStockRepo(txm),
		Sales:         document_repo.NewSaleRepo(txm),
		Prescriptions: document_repo.NewPrescriptionRepo(txm),
		Users:         auth_repo.NewUserRepo(txm),
		Reports:       report_repo.NewReportRepo(txm),
		Numerator:     numerator.New(txm),
		TxManager:     txm,
	}
	if audit != nil {
		repos.Audit = audit
	}
	return repos
}

// MemoryRepositories wires the in-memory store. Audit records are discarded.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Categories:    store.Categories(),
		Suppliers:     store.Suppliers(),
		Medicines:     store.Medicines(),
		Movements:     store.Movements(),
		Sales:         store.Sales(),
		Prescriptions: store.Prescriptions(),
		Users:         store.Users(),
		Reports:       store.Reports(),
		Numerator:     store.Numerator(),
		TxManager:     store,
	}
}

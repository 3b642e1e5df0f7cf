package supplier

import (
	"pharmledger/internal/core/tx"
	"pharmledger/internal/domain"
)

// Service provides business logic for suppliers.
// Supplier names are not unique; deletion is blocked while medicines reference the supplier.
type Service struct {
	*domain.CatalogService[*Supplier]
}

// NewService creates a new Supplier service.
func NewService(repo Repository, txm tx.Manager, audit domain.AuditRecorder) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
		Repo:       repo,
		TxManager:  txm,
		Audit:      audit,
		EntityName: "supplier",
	})
	return &Service{CatalogService: base}
}

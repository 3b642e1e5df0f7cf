package category

import (
	"context"

	"pharmledger/internal/core/id"
	"pharmledger/internal/core/tx"
	"pharmledger/internal/domain"
)

// Service provides business logic for categories.
type Service struct {
	*domain.CatalogService[*Category]
}

// NewService creates a new Category service.
func NewService(repo Repository, txm tx.Manager, audit domain.AuditRecorder) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Category]{
		Repo:       repo,
		TxManager:  txm,
		Audit:      audit,
		EntityName: "category",
	})

	unique := domain.UniqueName[*Category](repo, "category")
	base.Hooks().OnBeforeCreate(unique)
	base.Hooks().OnBeforeUpdate(unique)

	return &Service{CatalogService: base}
}

// CreateCategory creates a category, failing with a Duplicate error when the name exists.
func (s *Service) CreateCategory(ctx context.Context, name string, description *string) (*Category, error) {
	c := NewCategory(name, description)
	if err := s.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory renames or re-describes an existing category.
func (s *Service) UpdateCategory(ctx context.Context, categoryID id.ID, name string, description *string) (*Category, error) {
	c, err := s.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Description = description
	if err := s.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

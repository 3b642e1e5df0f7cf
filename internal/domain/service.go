package domain

import (
	"context"
	"errors"
	"fmt"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/tx"
	"pharmledger/pkg/logger"
)

// CatalogEntity is the constraint of the generic catalogue service.
type CatalogEntity interface {
	entity.Validatable
	GetID() id.ID
	Touch()
}

// CatalogService provides create/update/delete for reference data with
// lifecycle hooks and an audit trail written in the same transaction.
type CatalogService[T CatalogEntity] struct {
	repo      CatalogRepository[T]
	txManager tx.Manager
	audit     AuditRecorder
	hooks     *HookRegistry[T]

	// entityName for error messages and audit rows
	entityName string
}

// CatalogServiceConfig configures the catalog service.
type CatalogServiceConfig[T CatalogEntity] struct {
	Repo       CatalogRepository[T]
	TxManager  tx.Manager
	Audit      AuditRecorder // optional
	EntityName string
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T CatalogEntity](cfg CatalogServiceConfig[T]) *CatalogService[T] {
	audit := cfg.Audit
	if audit == nil {
		audit = NopAuditRecorder{}
	}
	return &CatalogService[T]{
		repo:       cfg.Repo,
		txManager:  cfg.TxManager,
		audit:      audit,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// EntityName returns the name used in errors and audit rows.
func (s *CatalogService[T]) EntityName() string {
	return s.entityName
}

func normalizeValidationErr(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *CatalogService[T]) normalizeGetErr(err error, entityID id.ID) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, entityID.String())
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", entityID.String())
}

// Create validates the entity, runs before-create hooks and inserts it.
func (s *CatalogService[T]) Create(ctx context.Context, e T) error {
	if err := e.Validate(ctx); err != nil {
		return normalizeValidationErr(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeCreate, e); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return s.audit.Record(ctx, s.entityName, e.GetID(), AuditCreate, e)
	})
	if err != nil {
		return err
	}

	s.runAfter(ctx, AfterCreate, e)
	logger.Info(ctx, s.entityName+" created", "id", e.GetID())
	return nil
}

// GetByID retrieves entity by ID.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return e, s.normalizeGetErr(err, entityID)
	}
	return e, nil
}

// Update validates and stores the entity, touching updated_at.
func (s *CatalogService[T]) Update(ctx context.Context, e T) error {
	if err := e.Validate(ctx); err != nil {
		return normalizeValidationErr(err)
	}
	e.Touch()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeUpdate, e); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return s.audit.Record(ctx, s.entityName, e.GetID(), AuditUpdate, e)
	})
	if err != nil {
		return s.normalizeGetErr(err, e.GetID())
	}

	s.runAfter(ctx, AfterUpdate, e)
	return nil
}

// Delete removes the entity. Entities still referenced elsewhere cannot be deleted.
func (s *CatalogService[T]) Delete(ctx context.Context, entityID id.ID) error {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return s.normalizeGetErr(err, entityID)
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeDelete, e); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, entityID); err != nil {
			if apperror.HasCode(err, apperror.CodeReferentialViolation) {
				return apperror.NewInUse(s.entityName, entityID.String()).WithCause(err)
			}
			return fmt.Errorf("delete %s: %w", s.entityName, err)
		}
		return s.audit.Record(ctx, s.entityName, entityID, AuditDelete, nil)
	})
	if err != nil {
		return err
	}

	s.runAfter(ctx, AfterDelete, e)
	logger.Info(ctx, s.entityName+" deleted", "id", entityID)
	return nil
}

// List retrieves entities with filtering.
func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Exists checks if entity exists.
func (s *CatalogService[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	return s.repo.Exists(ctx, entityID)
}

// UniqueName returns a before-create/update hook rejecting a name already in use.
func UniqueName[T interface {
	CatalogEntity
	GetName() string
}](repo CatalogRepository[T], entityName string) Hook[T] {
	return func(ctx context.Context, e T) error {
		exists, err := repo.ExistsByName(ctx, e.GetName(), e.GetID())
		if err != nil {
			return fmt.Errorf("check %s name: %w", entityName, err)
		}
		if exists {
			return apperror.NewDuplicate(entityName, "name", e.GetName())
		}
		return nil
	}
}

// runAfter executes after-hooks. The write is committed, so failures are logged only.
func (s *CatalogService[T]) runAfter(ctx context.Context, event HookEvent, e T) {
	if errs := s.hooks.RunAll(ctx, event, e); len(errs) > 0 {
		logger.Warn(ctx, "after-hook failed", "entity", s.entityName, "event", string(event), "error", errors.Join(errs...))
	}
}

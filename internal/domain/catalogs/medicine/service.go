package medicine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	appctx "pharmledger/internal/core/context"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/tx"
	"pharmledger/internal/domain"
	"pharmledger/pkg/logger"
)

// Lookup checks that a referenced catalogue row exists.
type Lookup interface {
	Exists(ctx context.Context, id id.ID) (bool, error)
}

// MovementRecorder appends to the stock movement log.
type MovementRecorder interface {
	RecordMovements(ctx context.Context, movements []entity.StockMovement) error
}

// Service owns the medicine catalogue and is the only writer of quantity.
type Service struct {
	repo       Repository
	categories Lookup
	suppliers  Lookup
	movements  MovementRecorder
	txManager  tx.Manager
	audit      domain.AuditRecorder
	hooks      *domain.HookRegistry[StockChange]
	now        func() time.Time
}

// Config wires the service dependencies.
type Config struct {
	Repo       Repository
	Categories Lookup
	Suppliers  Lookup
	Movements  MovementRecorder
	TxManager  tx.Manager
	Audit      domain.AuditRecorder // optional
}

// NewService creates a new Medicine service.
func NewService(cfg Config) *Service {
	audit := cfg.Audit
	if audit == nil {
		audit = domain.NopAuditRecorder{}
	}
	return &Service{
		repo:       cfg.Repo,
		categories: cfg.Categories,
		suppliers:  cfg.Suppliers,
		movements:  cfg.Movements,
		txManager:  cfg.TxManager,
		audit:      audit,
		hooks:      domain.NewHookRegistry[StockChange](),
		now:        time.Now,
	}
}

// Hooks exposes stock-change hooks. AfterUpdate fires after each committed change.
func (s *Service) Hooks() *domain.HookRegistry[StockChange] {
	return s.hooks
}

// Upsert creates the medicine when its ID is nil and updates it otherwise.
// On update the stored quantity is kept; use AdjustQuantity to change stock.
func (s *Service) Upsert(ctx context.Context, m *Medicine) (id.ID, error) {
	if id.IsNil(m.ID) {
		return s.create(ctx, m)
	}
	return m.ID, s.update(ctx, m)
}

func (s *Service) create(ctx context.Context, m *Medicine) (id.ID, error) {
	m.ID = id.New()
	now := s.now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	m.Version = 1
	m.DeletionMark = false

	if err := m.Validate(ctx); err != nil {
		return id.Nil(), err
	}
	if err := s.checkReferences(ctx, m); err != nil {
		return id.Nil(), err
	}

	actor := appctx.GetUserID(ctx)
	m.StampCreated(actor)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create medicine: %w", err)
		}
		if m.Quantity > 0 {
			mv := entity.NewStockMovement(m.ID, entity.MovementIn, m.Quantity, "initial stock", nil, actor)
			if err := s.movements.RecordMovements(ctx, []entity.StockMovement{mv}); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, "medicine", m.ID, domain.AuditCreate, m)
	})
	if err != nil {
		return id.Nil(), err
	}

	logger.Info(ctx, "medicine created", "id", m.ID, "name", m.Name, "quantity", m.Quantity)
	s.fire(ctx, StockChange{MedicineID: m.ID, Delta: m.Quantity, Quantity: m.Quantity, Kind: entity.MovementIn})
	return m.ID, nil
}

func (s *Service) update(ctx context.Context, m *Medicine) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, m.ID)
		if err != nil {
			return err
		}
		if m.Version != 0 && m.Version != current.Version {
			return apperror.NewConcurrentModification("medicine", m.ID.String())
		}

		m.Quantity = current.Quantity
		m.CreatedAt = current.CreatedAt
		m.CreatedBy = current.CreatedBy
		m.DeletionMark = current.DeletionMark
		m.Version = current.Version

		if err := m.Validate(ctx); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, m); err != nil {
			return err
		}

		m.Touch()
		m.StampUpdated(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update medicine: %w", err)
		}
		return s.audit.Record(ctx, "medicine", m.ID, domain.AuditUpdate, m)
	})
	if err != nil {
		return err
	}

	s.fire(ctx, StockChange{MedicineID: m.ID, Quantity: m.Quantity})
	return nil
}

func (s *Service) checkReferences(ctx context.Context, m *Medicine) error {
	if m.CategoryID != nil {
		ok, err := s.categories.Exists(ctx, *m.CategoryID)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if !ok {
			return apperror.NewReferentialViolation("category", "category_id")
		}
	}
	if m.SupplierID != nil {
		ok, err := s.suppliers.Exists(ctx, *m.SupplierID)
		if err != nil {
			return fmt.Errorf("check supplier: %w", err)
		}
		if !ok {
			return apperror.NewReferentialViolation("supplier", "supplier_id")
		}
	}
	return nil
}

// AdjustQuantity applies a signed delta in its own transaction and fires
// stock-change hooks after commit.
func (s *Service) AdjustQuantity(ctx context.Context, adj Adjustment) (*entity.StockMovement, int, error) {
	var (
		mv     *entity.StockMovement
		newQty int
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		mv, newQty, err = s.ApplyAdjustment(ctx, adj)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	logger.Info(ctx, "stock adjusted",
		"medicine_id", adj.MedicineID,
		"delta", adj.Delta,
		"kind", string(adj.Kind),
		"quantity", newQty,
	)
	s.fire(ctx, StockChange{MedicineID: adj.MedicineID, Delta: adj.Delta, Quantity: newQty, Kind: adj.Kind})
	return mv, newQty, nil
}

// ApplyAdjustment changes quantity and appends the movement. It must run inside
// the caller's transaction and fires no hooks; callers publish after commit.
//
// The decrement is a single conditional update, so concurrent callers cannot
// drive quantity below zero.
func (s *Service) ApplyAdjustment(ctx context.Context, adj Adjustment) (*entity.StockMovement, int, error) {
	if strings.TrimSpace(adj.Reason) == "" {
		return nil, 0, apperror.NewFieldValidation("reason", "reason is required")
	}
	mv := entity.NewStockMovement(adj.MedicineID, adj.Kind, adj.Delta, adj.Reason, adj.ReferenceID, appctx.GetUserID(ctx))
	if err := mv.Validate(); err != nil {
		return nil, 0, err
	}

	newQty, err := s.repo.ApplyDelta(ctx, adj.MedicineID, adj.Delta)
	if errors.Is(err, ErrStockConditionFailed) {
		current, gerr := s.repo.GetByID(ctx, adj.MedicineID)
		if gerr != nil {
			return nil, 0, gerr
		}
		return nil, 0, apperror.NewInsufficientStock(adj.MedicineID.String(), -adj.Delta, current.Quantity).
			WithDetail("medicine_name", current.Name)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("apply stock delta: %w", err)
	}

	if err := s.movements.RecordMovements(ctx, []entity.StockMovement{mv}); err != nil {
		return nil, 0, err
	}
	return &mv, newQty, nil
}

// PublishStockChange fires stock-change hooks for changes committed by another service.
func (s *Service) PublishStockChange(ctx context.Context, change StockChange) {
	s.fire(ctx, change)
}

func (s *Service) fire(ctx context.Context, change StockChange) {
	if errs := s.hooks.RunAll(ctx, domain.AfterUpdate, change); len(errs) > 0 {
		logger.Warn(ctx, "stock change hook failed", "medicine_id", change.MedicineID, "error", errors.Join(errs...))
	}
}

// GetByID returns the stored medicine.
func (s *Service) GetByID(ctx context.Context, medicineID id.ID) (*Medicine, error) {
	return s.repo.GetByID(ctx, medicineID)
}

// Get returns the medicine joined with its category and supplier names.
func (s *Service) Get(ctx context.Context, medicineID id.ID) (*View, error) {
	return s.repo.GetView(ctx, medicineID)
}

// List returns medicines matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*View], error) {
	filter.Normalize()
	if filter.ExpiringWithinDays != nil && *filter.ExpiringWithinDays < 0 {
		return domain.ListResult[*View]{}, apperror.NewFieldValidation("expiring_within_days", "must not be negative")
	}
	return s.repo.List(ctx, filter)
}

// LowStock lists medicines at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) (domain.ListResult[*View], error) {
	f := Filter{ListFilter: domain.DefaultListFilter(), LowStockOnly: true}
	f.OrderBy = "quantity"
	return s.List(ctx, f)
}

// Expiring lists medicines expiring within the given number of days.
func (s *Service) Expiring(ctx context.Context, days int) (domain.ListResult[*View], error) {
	f := Filter{ListFilter: domain.DefaultListFilter(), ExpiringWithinDays: &days}
	f.OrderBy = "expiry_date"
	return s.List(ctx, f)
}

// ListActive returns every unarchived medicine.
func (s *Service) ListActive(ctx context.Context) ([]*Medicine, error) {
	return s.repo.ListActive(ctx)
}

// Archive sets the deletion mark. Archived medicines stay referenced by
// history but can no longer be sold.
func (s *Service) Archive(ctx context.Context, medicineID id.ID, archived bool) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SetDeletionMark(ctx, medicineID, archived); err != nil {
			return err
		}
		return s.audit.Record(ctx, "medicine", medicineID, domain.AuditArchive, map[string]bool{"archived": archived})
	})
	if err != nil {
		return err
	}
	s.fire(ctx, StockChange{MedicineID: medicineID})
	return nil
}

// Delete physically removes a medicine that no sale line or movement references.
// Referenced medicines fail with a referential violation; archive them instead.
func (s *Service) Delete(ctx context.Context, medicineID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, medicineID); err != nil {
			return err
		}
		referenced, err := s.repo.IsReferenced(ctx, medicineID)
		if err != nil {
			return fmt.Errorf("check medicine references: %w", err)
		}
		if referenced {
			return apperror.NewInUse("medicine", medicineID.String()).
				WithDetail("hint", "archive the medicine instead")
		}
		if err := s.repo.Delete(ctx, medicineID); err != nil {
			if apperror.HasCode(err, apperror.CodeReferentialViolation) {
				return apperror.NewInUse("medicine", medicineID.String()).WithCause(err)
			}
			return err
		}
		return s.audit.Record(ctx, "medicine", medicineID, domain.AuditDelete, nil)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "medicine deleted", "id", medicineID)
	s.fire(ctx, StockChange{MedicineID: medicineID})
	return nil
}

// WriteOffExpired zeroes the stock of expired medicines with "expired"
// movements. Each medicine is written off in its own transaction.
func (s *Service) WriteOffExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired medicines: %w", err)
	}

	written := 0
	for _, m := range expired {
		if m.Quantity <= 0 {
			continue
		}
		_, _, err := s.AdjustQuantity(ctx, Adjustment{
			MedicineID: m.ID,
			Delta:      -m.Quantity,
			Kind:       entity.MovementExpired,
			Reason:     "expired write-off",
		})
		if apperror.IsInsufficientStock(err) {
			// sold between the scan and the write-off; next run picks up the remainder
			logger.Warn(ctx, "expired write-off skipped", "medicine_id", m.ID)
			continue
		}
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

package sale

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"pharmledger/internal/core/apperror"
	appctx "pharmledger/internal/core/context"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/numerator"
	"pharmledger/internal/core/tx"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/pkg/logger"
)

// NumeratorStrategy for sales: numbers are allocated inside the sale transaction.
const NumeratorStrategy = numerator.StrategyStrict

// SaleReason is the movement reason of every sale decrement.
const SaleReason = "sale"

var tracer = otel.Tracer("pharmledger/sale")

// Stock is the slice of the medicine service a sale needs.
type Stock interface {
	GetByID(ctx context.Context, id id.ID) (*medicine.Medicine, error)
	ApplyAdjustment(ctx context.Context, adj medicine.Adjustment) (*entity.StockMovement, int, error)
	PublishStockChange(ctx context.Context, change medicine.StockChange)
}

// Prescriptions checks prescription references.
type Prescriptions interface {
	Exists(ctx context.Context, id id.ID) (bool, error)
}

// Service records sales.
type Service struct {
	repo          Repository
	stock         Stock
	prescriptions Prescriptions
	numerator     numerator.Generator
	txManager     tx.Manager
	audit         domain.AuditRecorder
	hooks         *domain.HookRegistry[*Sale]
}

// Config wires the service dependencies.
type Config struct {
	Repo          Repository
	Stock         Stock
	Prescriptions Prescriptions
	Numerator     numerator.Generator
	TxManager     tx.Manager
	Audit         domain.AuditRecorder // optional
}

// NewService creates a new sale service.
func NewService(cfg Config) *Service {
	audit := cfg.Audit
	if audit == nil {
		audit = domain.NopAuditRecorder{}
	}
	return &Service{
		repo:          cfg.Repo,
		stock:         cfg.Stock,
		prescriptions: cfg.Prescriptions,
		numerator:     cfg.Numerator,
		txManager:     cfg.TxManager,
		audit:         audit,
		hooks:         domain.NewHookRegistry[*Sale](),
	}
}

// Hooks exposes sale hooks. AfterCreate fires once a sale has committed.
func (s *Service) Hooks() *domain.HookRegistry[*Sale] {
	return s.hooks
}

// RecordSale records a sale atomically: number, header, lines with
// snapshotted prices, and one conditional decrement plus "out" movement per
// medicine. Any failure leaves stock, sales and movements untouched.
func (s *Service) RecordSale(ctx context.Context, cmd RecordCommand) (*Sale, error) {
	if err := cmd.Validate(ctx); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sale.record")
	defer span.End()

	sale := &Sale{
		Document:       entity.NewDocument(),
		CustomerName:   cmd.Customer.Name,
		CustomerPhone:  cmd.Customer.Phone,
		PaymentMethod:  cmd.PaymentMethod,
		PrescriptionID: cmd.PrescriptionID,
		ServedBy:       id.Ptr(appctx.GetUserID(ctx)),
		Notes:          cmd.Notes,
	}
	lines := cmd.mergedLines()
	changes := make([]medicine.StockChange, 0, len(lines))

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkPrescription(ctx, cmd.PrescriptionID); err != nil {
			return err
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.SaleConfig(),
			&numerator.Options{Strategy: NumeratorStrategy}, sale.CreatedAt)
		if err != nil {
			return fmt.Errorf("generate sale number: %w", err)
		}
		sale.Number = number

		sale.Items = make([]Item, 0, len(lines))
		for i, line := range lines {
			item, err := s.priceLine(ctx, sale, i, line, cmd.PrescriptionID != nil)
			if err != nil {
				return err
			}
			sale.Items = append(sale.Items, item)
		}
		sale.computeTotal()

		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveItems(ctx, sale.ID, sale.Items); err != nil {
			return fmt.Errorf("save sale items: %w", err)
		}

		for i, item := range sale.Items {
			_, qty, err := s.stock.ApplyAdjustment(ctx, medicine.Adjustment{
				MedicineID:  item.MedicineID,
				Delta:       -item.Quantity,
				Kind:        entity.MovementOut,
				Reason:      SaleReason,
				ReferenceID: &sale.ID,
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok {
					return appErr.WithDetail("line", i+1)
				}
				return err
			}
			changes = append(changes, medicine.StockChange{
				MedicineID: item.MedicineID,
				Delta:      -item.Quantity,
				Quantity:   qty,
				Kind:       entity.MovementOut,
			})
		}

		return s.audit.Record(ctx, "sale", sale.ID, domain.AuditCreate, sale)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sale failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("sale.number", sale.Number),
		attribute.Int("sale.lines", len(sale.Items)),
	)

	logger.Info(ctx, "sale recorded",
		"id", sale.ID,
		"number", sale.Number,
		"total", sale.TotalAmount.StringFixed(types.MoneyScale),
		"lines", len(sale.Items),
		"payment_method", string(sale.PaymentMethod),
	)

	for _, change := range changes {
		s.stock.PublishStockChange(ctx, change)
	}
	if errs := s.hooks.RunAll(ctx, domain.AfterCreate, sale); len(errs) > 0 {
		logger.Warn(ctx, "sale hook failed", "id", sale.ID, "error", errors.Join(errs...))
	}
	return sale, nil
}

func (s *Service) checkPrescription(ctx context.Context, prescriptionID *id.ID) error {
	if prescriptionID == nil {
		return nil
	}
	ok, err := s.prescriptions.Exists(ctx, *prescriptionID)
	if err != nil {
		return fmt.Errorf("check prescription: %w", err)
	}
	if !ok {
		return apperror.NewReferentialViolation("prescription", "prescription_id")
	}
	dispensed, err := s.repo.ExistsForPrescription(ctx, *prescriptionID)
	if err != nil {
		return fmt.Errorf("check prescription sale: %w", err)
	}
	if dispensed {
		return apperror.NewConflict("prescription is already linked to a sale").
			WithDetail("prescription_id", prescriptionID.String())
	}
	return nil
}

// priceLine reads the current selling price inside the transaction and snapshots it.
func (s *Service) priceLine(ctx context.Context, sale *Sale, i int, line LineItem, hasPrescription bool) (Item, error) {
	med, err := s.stock.GetByID(ctx, line.MedicineID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return Item{}, apperror.NewReferentialViolation("medicine", fmt.Sprintf("items[%d].medicine_id", i)).
				WithDetail("medicine_id", line.MedicineID.String())
		}
		return Item{}, fmt.Errorf("load medicine %s: %w", line.MedicineID, err)
	}
	if med.DeletionMark {
		return Item{}, apperror.NewBusinessRule(apperror.CodeBusinessRule, "medicine is archived and cannot be sold").
			WithDetail("medicine_id", med.ID.String()).
			WithDetail("line", i+1)
	}
	if med.RequiresPrescription && !hasPrescription {
		return Item{}, apperror.NewBusinessRule(apperror.CodePrescriptionRequired, "medicine requires a prescription").
			WithDetail("medicine_id", med.ID.String()).
			WithDetail("line", i+1)
	}

	return Item{
		ID:         id.New(),
		SaleID:     sale.ID,
		LineNo:     i + 1,
		MedicineID: line.MedicineID,
		Quantity:   line.Quantity,
		UnitPrice:  med.SellingPrice,
		TotalPrice: types.LineTotal(line.Quantity, med.SellingPrice),
	}, nil
}

// Get returns a sale with its lines.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*View, error) {
	return s.repo.GetByID(ctx, saleID)
}

// List returns sales newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	if err := normalizeFilter(&filter); err != nil {
		return domain.ListResult[*Sale]{}, err
	}
	return s.repo.List(ctx, filter)
}

// ExportLines returns sales with lines for spreadsheet export.
func (s *Service) ExportLines(ctx context.Context, filter ListFilter) ([]*View, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}
	return s.repo.ListWithLines(ctx, filter)
}

func normalizeFilter(filter *ListFilter) error {
	filter.Normalize()
	if filter.OrderBy == "" || filter.OrderBy == "name" {
		filter.OrderBy = "-created_at"
	}
	if filter.PaymentMethod != nil && !filter.PaymentMethod.Valid() {
		return apperror.NewFieldValidation("payment_method", "unknown payment method")
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return apperror.NewFieldValidation("to", "end date precedes start date")
	}
	return nil
}

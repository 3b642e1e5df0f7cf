package prescription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	appctx "pharmledger/internal/core/context"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/numerator"
	"pharmledger/internal/core/tx"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/pkg/logger"
)

// NumeratorStrategy for prescriptions: numbers are allocated inside the
// recording transaction.
const NumeratorStrategy = numerator.StrategyStrict

// Service records and reads prescriptions.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	audit     domain.AuditRecorder
	now       func() time.Time
}

// NewService creates a new prescription service.
func NewService(repo Repository, gen numerator.Generator, txm tx.Manager, audit domain.AuditRecorder) *Service {
	if audit == nil {
		audit = domain.NopAuditRecorder{}
	}
	return &Service{repo: repo, numerator: gen, txManager: txm, audit: audit, now: time.Now}
}

// Record stores a prescription, generating its number when absent.
func (s *Service) Record(ctx context.Context, p *Prescription) (id.ID, error) {
	p.Number = strings.TrimSpace(p.Number)
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	if p.PrescriptionDate.IsZero() {
		p.PrescriptionDate = types.BusinessDate(p.CreatedAt)
	}
	p.CreatedBy = id.Ptr(appctx.GetUserID(ctx))

	if err := p.Validate(ctx); err != nil {
		return id.Nil(), err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if p.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, numerator.PrescriptionConfig(),
				&numerator.Options{Strategy: NumeratorStrategy}, p.CreatedAt)
			if err != nil {
				return fmt.Errorf("generate prescription number: %w", err)
			}
			p.Number = number
		} else {
			exists, err := s.repo.ExistsByNumber(ctx, p.Number)
			if err != nil {
				return fmt.Errorf("check prescription number: %w", err)
			}
			if exists {
				return apperror.NewDuplicate("prescription", "prescription_number", p.Number)
			}
		}

		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create prescription: %w", err)
		}
		return s.audit.Record(ctx, "prescription", p.ID, domain.AuditCreate, p)
	})
	if err != nil {
		return id.Nil(), err
	}

	logger.Info(ctx, "prescription recorded", "id", p.ID, "number", p.Number)
	return p.ID, nil
}

// Get returns a prescription with its dispensing sale, if any.
func (s *Service) Get(ctx context.Context, prescriptionID id.ID) (*View, error) {
	return s.repo.GetByID(ctx, prescriptionID)
}

// Exists reports whether a prescription exists.
func (s *Service) Exists(ctx context.Context, prescriptionID id.ID) (bool, error) {
	return s.repo.Exists(ctx, prescriptionID)
}

// List returns prescriptions newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*View], error) {
	filter.Normalize()
	if filter.OrderBy == "" || filter.OrderBy == "name" {
		filter.OrderBy = "-created_at"
	}
	return s.repo.List(ctx, filter)
}

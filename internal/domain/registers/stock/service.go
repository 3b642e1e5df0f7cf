package stock

import (
	"context"
	"fmt"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
	"pharmledger/pkg/logger"
)

// Service records and reads stock movements.
// Transactions are managed by the caller: movements are appended in the
// same transaction as the quantity change they describe.
type Service struct {
	repo Repository
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordMovements validates and appends movements.
func (s *Service) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	for i := range movements {
		if err := movements[i].Validate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("movement", i)
			}
			return err
		}
	}

	if err := s.repo.Append(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Debug(ctx, "recorded stock movements",
		"count", len(movements),
		"medicine_id", movements[0].MedicineID,
		"kind", string(movements[0].Kind),
	)
	return nil
}

// History returns the movements of one medicine, newest first.
func (s *Service) History(ctx context.Context, medicineID id.ID, filter MovementFilter) (domain.ListResult[MovementView], error) {
	filter.MedicineID = &medicineID
	return s.List(ctx, filter)
}

// List returns movements matching the filter.
func (s *Service) List(ctx context.Context, filter MovementFilter) (domain.ListResult[MovementView], error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Kind != nil && !filter.Kind.Valid() {
		return domain.ListResult[MovementView]{}, apperror.NewFieldValidation("movement_type", "unknown movement type")
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return domain.ListResult[MovementView]{}, apperror.NewFieldValidation("to", "end date precedes start date")
	}
	return s.repo.List(ctx, filter)
}

// Totals sums movements per kind.
func (s *Service) Totals(ctx context.Context, filter MovementFilter) ([]KindTotal, error) {
	return s.repo.Totals(ctx, filter)
}

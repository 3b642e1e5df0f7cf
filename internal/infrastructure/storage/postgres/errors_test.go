package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"pharmledger/internal/core/apperror"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		status   int
	}{
		{
			name:     "unique category name",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "medicine_categories_name_key"},
			wantCode: apperror.CodeDuplicate,
			status:   http.StatusConflict,
		},
		{
			name:     "movement for unknown medicine",
			err:      fmt.Errorf("append: %w", &pgconn.PgError{Code: "23503", ConstraintName: "stock_movements_medicine_id_fkey"}),
			wantCode: apperror.CodeReferentialViolation,
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "negative quantity check",
			err:      &pgconn.PgError{Code: "23514", ConstraintName: "medicines_quantity_check"},
			wantCode: apperror.CodeValidation,
			status:   http.StatusBadRequest,
		},
		{
			name:     "deadlock",
			err:      &pgconn.PgError{Code: "40P01"},
			wantCode: apperror.CodeTransactionFailure,
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: apperror.CodeTransactionFailure,
			status:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err)
			appErr, ok := apperror.AsAppError(got)
			if !ok {
				t.Fatalf("expected AppError, got %T: %v", got, got)
			}
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}
}

func TestTranslateError_ConstraintDetails(t *testing.T) {
	err := TranslateError(&pgconn.PgError{Code: "23505", ConstraintName: "sales_sale_number_key"})
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "sale", appErr.Details["entity"])
	assert.Equal(t, "sale_number", appErr.Details["field"])
}

func TestTranslateError_PassThrough(t *testing.T) {
	assert.NoError(t, TranslateError(nil))

	nf := apperror.NewNotFound("medicine", "x")
	assert.Same(t, nf, TranslateError(nf))

	plain := errors.New("boom")
	assert.Equal(t, plain, TranslateError(plain))
}

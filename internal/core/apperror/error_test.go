package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsufficientStock_Details(t *testing.T) {
	err := NewInsufficientStock("med-1", 25, 20)

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, "med-1", err.Details["medicine_id"])
	assert.Equal(t, 25, err.Details["requested"])
	assert.Equal(t, 20, err.Details["available"])
}

func TestHelpers_WrappedError(t *testing.T) {
	base := NewDuplicate("category", "name", "Antibiotics")
	wrapped := fmt.Errorf("create category: %w", base)

	assert.True(t, IsAppError(wrapped))
	assert.True(t, IsDuplicate(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(wrapped))

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestTransactionFailure_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransactionFailure(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
}

func TestFieldValidation(t *testing.T) {
	err := NewFieldValidation("selling_price", "selling price must not be negative")
	if err.Details["field"] != "selling_price" {
		t.Errorf("field detail = %v", err.Details["field"])
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("status = %d", err.HTTPStatus)
	}
}

package category_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/infrastructure/storage/memory"
)

func TestCreateCategory_Duplicate(t *testing.T) {
	store := memory.New()
	svc := category.NewService(store.Categories(), store, nil)
	ctx := context.Background()

	first, err := svc.CreateCategory(ctx, "Antibiotics", nil)
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, "Antibiotics", nil)
	if !apperror.IsDuplicate(err) {
		t.Errorf("CreateCategory() error = %v, want duplicate", err)
	}

	other, err := svc.CreateCategory(ctx, "Analgesics", nil)
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, other.ID, "Antibiotics", nil)
	assert.True(t, apperror.IsDuplicate(err), "rename onto an existing name, got %v", err)

	desc := "penicillins and cephalosporins"
	updated, err := svc.UpdateCategory(ctx, first.ID, "Antibiotics", &desc)
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, desc, *updated.Description)
}

func TestCreateCategory_Validation(t *testing.T) {
	store := memory.New()
	svc := category.NewService(store.Categories(), store, nil)

	_, err := svc.CreateCategory(context.Background(), "   ", nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
}

package catalog_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/medicine"
)

func TestListQuery_Filters(t *testing.T) {
	repo := NewBaseCatalogRepo[any](nil, "test_table", "test", []string{"id", "name", "deletion_mark"}, func() any { return nil })

	tests := []struct {
		name     string
		filter   domain.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "archived hidden by default",
			filter:   domain.ListFilter{},
			wantSQL:  "SELECT id, name, deletion_mark FROM test_table WHERE deletion_mark = $1",
			wantArgs: []any{false},
		},
		{
			name:     "search",
			filter:   domain.ListFilter{IncludeArchived: true, Search: "amox"},
			wantSQL:  "SELECT id, name, deletion_mark FROM test_table WHERE name ILIKE $1",
			wantArgs: []any{"%amox%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.listQuery(repo.baseSelect(), tt.filter, "").ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestListQuery_NotArchivable(t *testing.T) {
	repo := NewBaseCatalogRepo[any](nil, "medicine_categories", "category", []string{"id", "name"}, func() any { return nil })

	sql, args, err := repo.listQuery(repo.baseSelect(), domain.ListFilter{}, "").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM medicine_categories", sql)
	assert.Empty(t, args)
}

func TestParseOrderBy(t *testing.T) {
	allowed := []string{"id", "name", "quantity", "expiry_date"}

	got, err := ParseOrderBy("", allowed, "name ASC", "")
	require.NoError(t, err)
	assert.Equal(t, "name ASC", got)

	got, err = ParseOrderBy("-quantity", allowed, "name ASC", "m.")
	require.NoError(t, err)
	assert.Equal(t, "m.quantity DESC, m.id DESC", got)

	_, err = ParseOrderBy("quantity; DROP TABLE medicines", allowed, "name ASC", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestMedicineRepo_FilterQuery(t *testing.T) {
	repo := NewMedicineRepo(nil)
	categoryID := id.New()
	days := 30

	q := repo.filterQuery(medicine.Filter{
		ListFilter:         domain.ListFilter{Search: "para"},
		CategoryID:         &categoryID,
		LowStockOnly:       true,
		ExpiringWithinDays: &days,
	})
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM medicines m LEFT JOIN medicine_categories c ON c.id = m.category_id")
	assert.Contains(t, sql, "m.deletion_mark = $1")
	assert.Contains(t, sql, "(m.name ILIKE $2 OR m.generic_name ILIKE $3)")
	assert.Contains(t, sql, "m.category_id = $4")
	assert.Contains(t, sql, "m.quantity <= m.reorder_level")
	assert.Contains(t, sql, "CURRENT_DATE + $5::int")
	assert.Equal(t, []any{false, "%para%", "%para%", categoryID, 30}, args)
}

func TestBaseCatalogRepo_DeleteSQL(t *testing.T) {
	repo := NewBaseCatalogRepo[any](nil, "suppliers", "supplier", []string{"id", "name"}, func() any { return nil })
	entityID := id.New()

	sql, args, err := repo.Builder().
		Delete(repo.tableName).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	if sql != "DELETE FROM suppliers WHERE id = $1" {
		t.Errorf("SQL mismatch: %s", sql)
	}
	if len(args) != 1 || args[0] != entityID {
		t.Errorf("Args mismatch: %v", args)
	}
}

package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
)

type testMedicine struct {
	entity.Catalog
	entity.Actor

	Quantity int     `db:"quantity"`
	Batch    *string `db:"batch_number"`
	Lines    []int   `db:"-"`
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[testMedicine]()

	assert.Equal(t, []string{
		"id", "created_at", "updated_at", "name",
		"created_by", "updated_by",
		"quantity", "batch_number",
	}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	actor := id.New()
	batch := "B-204"

	m := testMedicine{
		Catalog: entity.Catalog{
			BaseEntity: entity.BaseEntity{ID: id.New(), CreatedAt: now, UpdatedAt: now},
			Name:       "Amoxicillin 500mg",
		},
		Quantity: 20,
		Batch:    &batch,
		Lines:    []int{1, 2},
	}
	m.StampCreated(actor)

	got := StructToMap(&m)

	assert.Equal(t, m.ID, got["id"])
	assert.Equal(t, "Amoxicillin 500mg", got["name"])
	assert.Equal(t, 20, got["quantity"])
	assert.Equal(t, &batch, got["batch_number"])
	assert.Equal(t, &actor, got["created_by"])
	assert.NotContains(t, got, "Lines")
	assert.Len(t, got, 8)
}

func TestStructToMap_NotStruct(t *testing.T) {
	if got := StructToMap(42); got != nil {
		t.Errorf("StructToMap(42) = %v, want nil", got)
	}
}

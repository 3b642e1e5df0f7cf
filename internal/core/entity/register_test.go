package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
)

func TestStockMovement_Validate(t *testing.T) {
	med := id.New()
	tests := []struct {
		name    string
		kind    MovementKind
		delta   int
		wantErr bool
	}{
		{"in positive", MovementIn, 10, false},
		{"in negative", MovementIn, -1, true},
		{"out negative", MovementOut, -5, false},
		{"out positive", MovementOut, 5, true},
		{"expired negative", MovementExpired, -3, false},
		{"adjustment either sign", MovementAdjustment, -2, false},
		{"adjustment zero", MovementAdjustment, 0, true},
		{"unknown kind", MovementKind("transfer"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStockMovement(med, tt.kind, tt.delta, "test", nil, id.Nil())
			err := m.Validate()
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewStockMovement_SystemActor(t *testing.T) {
	m := NewStockMovement(id.New(), MovementIn, 1, "initial stock", nil, id.Nil())
	assert.Nil(t, m.CreatedBy)
	assert.False(t, id.IsNil(m.ID))
}

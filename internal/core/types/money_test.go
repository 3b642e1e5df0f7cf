package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name  string
		qty   int
		price string
		want  string
	}{
		{"amoxicillin", 5, "50.00", "250"},
		{"rounding", 3, "0.335", "1.01"},
		{"zero qty", 0, "12.50", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(tt.qty, MustMoney(tt.price))
			assert.True(t, got.Equal(MustMoney(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestSum(t *testing.T) {
	got := Sum(MustMoney("10.10"), MustMoney("0.205"), MustMoney("4"))
	if !got.Equal(MustMoney("14.31")) {
		t.Errorf("Sum = %s", got)
	}
}

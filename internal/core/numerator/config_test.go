package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/types"
)

func TestFormat(t *testing.T) {
	day := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "SALE-20261019-0001", Format(SaleConfig(), day, 1))
	assert.Equal(t, "SALE-20261019-10000", Format(SaleConfig(), day, 10000))
	assert.Equal(t, "RX-20261019-042", Format(PrescriptionConfig(), day, 42))
	assert.Equal(t, "INV-00007", Format(Config{Prefix: "INV", PadWidth: 5, ResetPeriod: ResetNever}, day, 7))
}

func TestSequenceKey(t *testing.T) {
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SALE_20260102", SequenceKey(SaleConfig(), day))
	assert.Equal(t, "X_2026", SequenceKey(Config{Prefix: "X", ResetPeriod: ResetYearly}, day))
	assert.Equal(t, "X", SequenceKey(Config{Prefix: "X", ResetPeriod: ResetNever}, day))
}

func TestFormat_BusinessLocation(t *testing.T) {
	types.SetBusinessLocation(time.FixedZone("EAT", 3*60*60))
	t.Cleanup(func() { types.SetBusinessLocation(nil) })

	// 22:00 UTC on the 19th is the 20th at UTC+3.
	late := time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, "SALE-20261020-0001", Format(SaleConfig(), late, 1))
	assert.Equal(t, "SALE_20261020", SequenceKey(SaleConfig(), late))
}

func TestParse(t *testing.T) {
	seq, err := Parse(SaleConfig(), "SALE-20261019-0123")
	require.NoError(t, err)
	assert.Equal(t, int64(123), seq)

	_, err = Parse(SaleConfig(), "RX-20261019-001")
	assert.Error(t, err)
}

func TestMockGenerator_Counts(t *testing.T) {
	m := &MockGenerator{}
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	first, _ := m.GetNextNumber(t.Context(), SaleConfig(), nil, day)
	second, _ := m.GetNextNumber(t.Context(), SaleConfig(), nil, day)
	if first != "SALE-20261019-0001" || second != "SALE-20261019-0002" {
		t.Errorf("got %s, %s", first, second)
	}
}

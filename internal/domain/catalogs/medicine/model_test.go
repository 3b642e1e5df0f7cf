package medicine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/catalogs/medicine"
)

func TestDaysToExpiry(t *testing.T) {
	m := medicine.NewMedicine("Insulin", types.MustMoney("20.00"), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))

	morning := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, m.DaysToExpiry(morning))
	assert.Equal(t, 0, m.DaysToExpiry(morning.Add(24*time.Hour)))
	assert.Equal(t, -1, m.DaysToExpiry(morning.Add(48*time.Hour)))
	assert.True(t, m.IsExpired(morning.Add(48*time.Hour)))
}

func TestDaysToExpiry_UsesBusinessDay(t *testing.T) {
	types.SetBusinessLocation(time.FixedZone("EAT", 3*60*60))
	t.Cleanup(func() { types.SetBusinessLocation(nil) })

	m := medicine.NewMedicine("Insulin", types.MustMoney("20.00"), time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))

	// 22:30 UTC on the 19th is already the 20th in the pharmacy.
	late := time.Date(2026, 10, 19, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, 0, m.DaysToExpiry(late))

	// 23:30 UTC on the 20th is the 21st: expired.
	assert.True(t, m.IsExpired(time.Date(2026, 10, 20, 23, 30, 0, 0, time.UTC)))
}

package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/documents/sale"
)

func cellValue(t *testing.T, sheet *xlsx.Sheet, row, col int) string {
	t.Helper()
	c, err := sheet.Cell(row, col)
	require.NoError(t, err)
	return c.Value
}

func TestWriteSales(t *testing.T) {
	customer := "Jane Wanjiku"
	v := &sale.View{
		Sale: sale.Sale{
			Document:      entity.NewDocument(),
			Number:        "SALE-20261019-0001",
			CustomerName:  &customer,
			PaymentMethod: sale.PaymentMpesa,
			TotalAmount:   types.MustMoney("262.50"),
		},
		Lines: []sale.ItemView{
			{
				Item: sale.Item{
					ID: id.New(), LineNo: 1, MedicineID: id.New(), Quantity: 5,
					UnitPrice: types.MustMoney("50.00"), TotalPrice: types.MustMoney("250.00"),
				},
				MedicineName: "Amoxicillin",
			},
			{
				Item: sale.Item{
					ID: id.New(), LineNo: 2, MedicineID: id.New(), Quantity: 1,
					UnitPrice: types.MustMoney("12.50"), TotalPrice: types.MustMoney("12.50"),
				},
				MedicineName: "Paracetamol",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, []*sale.View{v}))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 2)

	sales := file.Sheet["Sales"]
	require.NotNil(t, sales)
	assert.Equal(t, "Sale Number", cellValue(t, sales, 0, 0))
	assert.Equal(t, "SALE-20261019-0001", cellValue(t, sales, 1, 0))
	assert.Equal(t, customer, cellValue(t, sales, 1, 2))
	assert.Equal(t, "mpesa", cellValue(t, sales, 1, 4))
	assert.Equal(t, "2", cellValue(t, sales, 1, 5))
	total, err := sales.Cell(1, 6)
	require.NoError(t, err)
	f, err := total.Float()
	require.NoError(t, err)
	assert.InDelta(t, 262.5, f, 0.001)

	lines := file.Sheet["Lines"]
	require.NotNil(t, lines)
	assert.Equal(t, 3, lines.MaxRow)
	assert.Equal(t, "Amoxicillin", cellValue(t, lines, 1, 2))
	assert.Equal(t, "5", cellValue(t, lines, 1, 3))
	assert.Equal(t, "Paracetamol", cellValue(t, lines, 2, 2))
}

func TestWriteSales_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, nil))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, file.Sheet["Sales"].MaxRow)
}

func TestSalesFilename(t *testing.T) {
	ts := time.Date(2026, 10, 19, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "sales_export_20261019_140509.xlsx", SalesFilename(ts))
}

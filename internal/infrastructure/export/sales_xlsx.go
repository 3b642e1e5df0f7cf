// Package export renders ledger data as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx/v3"

	"pharmledger/internal/domain/documents/sale"
)

// ContentTypeXLSX is the MIME type of the workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const moneyFormat = "#,##0.00"

var (
	salesHeaders = []string{"Sale Number", "Date", "Customer", "Phone", "Payment Method", "Lines", "Total"}
	linesHeaders = []string{"Sale Number", "Line", "Medicine", "Quantity", "Unit Price", "Line Total"}
)

// SalesFilename names an export produced at t.
func SalesFilename(t time.Time) string {
	return fmt.Sprintf("sales_export_%s.xlsx", t.UTC().Format("20060102_150405"))
}

// WriteSales writes a workbook with a Sales sheet (one row per sale) and a
// Lines sheet (one row per sale line).
func WriteSales(w io.Writer, sales []*sale.View) error {
	file := xlsx.NewFile()

	salesSheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("add sales sheet: %w", err)
	}
	linesSheet, err := file.AddSheet("Lines")
	if err != nil {
		return fmt.Errorf("add lines sheet: %w", err)
	}
	addHeader(salesSheet, salesHeaders)
	addHeader(linesSheet, linesHeaders)

	for _, s := range sales {
		row := salesSheet.AddRow()
		row.AddCell().SetString(s.Number)
		row.AddCell().SetDateTime(s.CreatedAt)
		row.AddCell().SetString(deref(s.CustomerName))
		row.AddCell().SetString(deref(s.CustomerPhone))
		row.AddCell().SetString(string(s.PaymentMethod))
		row.AddCell().SetInt(len(s.Lines))
		row.AddCell().SetFloatWithFormat(s.TotalAmount.InexactFloat64(), moneyFormat)

		for _, l := range s.Lines {
			line := linesSheet.AddRow()
			line.AddCell().SetString(s.Number)
			line.AddCell().SetInt(l.LineNo)
			line.AddCell().SetString(l.MedicineName)
			line.AddCell().SetInt(l.Quantity)
			line.AddCell().SetFloatWithFormat(l.UnitPrice.InexactFloat64(), moneyFormat)
			line.AddCell().SetFloatWithFormat(l.TotalPrice.InexactFloat64(), moneyFormat)
		}
	}

	salesSheet.SetColWidth(1, len(salesHeaders), 18)
	linesSheet.SetColWidth(1, len(linesHeaders), 18)

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, headers []string) {
	row := sheet.AddRow()
	for _, h := range headers {
		cell := row.AddCell()
		cell.SetString(h)
		style := cell.GetStyle()
		style.Font.Bold = true
		style.Fill.PatternType = "solid"
		style.Fill.FgColor = "CCCCCC"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

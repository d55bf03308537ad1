package stock

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Movements"

// ExportMovements renders the filtered movement history as an xlsx workbook
// for back-office export.
func (l *Ledger) ExportMovements(ctx context.Context, f MovementFilter) (*excelize.File, error) {
	movs, err := l.store.ListMovements(ctx, f)
	if err != nil {
		return nil, err
	}
	return BuildMovementsWorkbook(movs)
}

// BuildMovementsWorkbook writes one movement per row, oldest first.
func BuildMovementsWorkbook(movs []Movement) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	headers := []string{"ID", "Material", "From", "To", "Qty", "Kind", "Order", "Technician", "Created At"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i := len(movs) - 1; i >= 0; i-- {
		m := movs[i]
		rowIdx := len(movs) - i + 1
		values := []any{
			m.ID,
			m.MaterialID,
			optInt(m.FromLocationID),
			optInt(m.ToLocationID),
			m.Qty,
			string(m.Kind),
			optStr(m.OrderID),
			optStr(m.TechnicianID),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func optStr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/fetalalert/fetalalert/pkg/types"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "Readings"

var columnWidths = []float64{14, 10, 8, 8, 10}

// WriteXLSX writes rows as a single-sheet workbook with a bold, frozen
// header. Numeric values become number cells; anything else is kept as
// text and unavailable values are left blank.
func WriteXLSX(w io.Writer, rows []types.Row) error {
	if len(rows) == 0 {
		return ErrNoRows
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("export: delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for col, h := range Header {
		if err := setCell(f, col+1, 1, h); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("export: column width: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("export: set header style: %w", err)
	}

	for i, r := range rows {
		line := i + 2
		cells := []any{r.Date, r.Time, cellValue(r.HeartRate), cellValue(r.SpO2), cellValue(r.Movements)}
		for col, v := range cells {
			if v == nil {
				continue
			}
			if err := setCell(f, col+1, line, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("export: freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

func cellValue(v types.Value) any {
	switch {
	case v.Valid:
		return v.Num
	case v.Raw != "":
		return v.Raw
	default:
		return nil
	}
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("export: cell name: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("export: set %s: %w", cell, err)
	}
	return nil
}

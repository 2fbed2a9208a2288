package payroll

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Payroll"

var exportHeaders = []string{"Name", "Code", "Role", "Days", "Daily rate", "Amount"}

// WriteXLSX writes the report as a spreadsheet: a title row, a header row,
// one row per line and a total row.
func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("Payroll %s to %s", rep.Window.Start, rep.Window.End)
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheetName, "A2", &exportHeaders); err != nil {
		return err
	}

	row := 3
	for _, l := range rep.Lines {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []any{
			l.Staff.Name(),
			l.Staff.Code,
			string(l.Staff.Role),
			l.Days,
			l.Rate.InexactFloat64(),
			l.Amount.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
		row++
	}

	totalCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	total := []any{"Total", "", "", rep.TotalDays, "", rep.Total.InexactFloat64()}
	if err := f.SetSheetRow(sheetName, totalCell, &total); err != nil {
		return err
	}

	if err := f.SetColWidth(sheetName, "A", "A", 28); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// =============================================================================
// Z Report Exporter - Spreadsheet Importer
// =============================================================================
//
// This module reads a Z report workbook into a ReportRecord. The cell layout
// is configurable through config.XLSXSettings; the default layout is:
//
//   | Cell / Rows | Content                                          |
//   |-------------|--------------------------------------------------|
//   | B1..B6      | z, date, builddate, responsible, type, comment   |
//   | 9..17       | cash counts per denomination (start B, end C)    |
//   | 21..38      | sales table (code A, description B, amount C)    |
//   | 41..58      | debet table (same columns)                       |
//
// A table ends at the first row with an empty code. Cells are read with their
// formatted text, so date cells should be stored as text in the workbook.
//
// =============================================================================

package xlsximport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/config"
	"github.com/ginjaninja78/zreport/internal/types"
)

// BuildDateLayout is the format used for a missing builddate cell.
const BuildDateLayout = "2006.01.02 15:04"

// now is replaced in tests.
var now = time.Now

// Import opens the workbook at path and reads one record from it.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - settings: The cell layout.
//
// RETURNS:
//   - The record read from the workbook.
//   - An error if the file cannot be opened or a cell cannot be read.
func Import(path string, settings config.XLSXSettings) (types.ReportRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return types.ReportRecord{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	record, err := Read(f, settings)
	if err != nil {
		return types.ReportRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	return record, nil
}

// Read reads one record from an open workbook.
func Read(f *excelize.File, settings config.XLSXSettings) (types.ReportRecord, error) {
	sheet := settings.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return types.ReportRecord{}, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return types.ReportRecord{}, fmt.Errorf("sheet %q not found", sheet)
	}

	r := &reader{f: f, sheet: sheet}
	record := types.ReportRecord{
		Z:           types.String(r.text(settings.ZCell)),
		Date:        types.String(r.text(settings.DateCell)),
		BuildDate:   types.String(r.text(settings.BuildDateCell)),
		Responsible: types.String(r.text(settings.ResponsibleCell)),
		Type:        types.String(r.text(settings.TypeCell)),
		Comment:     types.String(r.text(settings.CommentCell)),
	}
	if record.BuildDate.String() == "" {
		record.BuildDate = types.String(now().Format(BuildDateLayout))
	}

	cash := &types.Cash{}
	for i := range aggregate.Denominations {
		row := settings.CashFirstRow + i
		cash.Start = append(cash.Start, r.number(r.cell(settings.CashStartColumn, row)))
		cash.End = append(cash.End, r.number(r.cell(settings.CashEndColumn, row)))
	}
	record.Cash = cash

	record.Sales = r.table(settings, settings.SalesFirstRow)
	record.Debet = r.table(settings, settings.DebetFirstRow)

	if r.err != nil {
		return types.ReportRecord{}, r.err
	}
	return record, nil
}

// reader remembers the first cell error so the layout code stays linear.
type reader struct {
	f     *excelize.File
	sheet string
	err   error
}

func (r *reader) cell(column string, row int) string {
	name, err := excelize.JoinCellName(column, row)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid cell %s%d: %w", column, row, err)
	}
	return name
}

func (r *reader) text(cell string) string {
	if r.err != nil || cell == "" {
		return ""
	}
	value, err := r.f.GetCellValue(r.sheet, cell)
	if err != nil {
		r.err = fmt.Errorf("failed to read cell %s: %w", cell, err)
		return ""
	}
	return strings.TrimSpace(value)
}

// number reads an integer cell. Blank cells count as 0 and anything that is
// not an integer is kept as text.
func (r *reader) number(cell string) types.Value {
	text := r.text(cell)
	if text == "" {
		return types.Int(0)
	}
	if n, err := strconv.Atoi(text); err == nil {
		return types.Int(n)
	}
	return types.String(text)
}

func (r *reader) table(settings config.XLSXSettings, firstRow int) []types.Row {
	rows := []types.Row{}
	for i := 0; i < settings.MaxRows; i++ {
		row := firstRow + i
		code := r.text(r.cell(settings.CodeColumn, row))
		if code == "" {
			break
		}
		rows = append(rows, types.Row{
			Code:        types.String(code),
			Description: types.String(r.text(r.cell(settings.DescriptionColumn, row))),
			Amount:      r.number(r.cell(settings.AmountColumn, row)),
		})
	}
	return rows
}

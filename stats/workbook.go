package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/bioextract/entity"
)

// Workbook column headers.
const (
	ColName       = "Name"
	ColOccurrence = "Occurrence"
)

// WriteWorkbook writes one sheet per report, named after its category, to
// path. An existing file is replaced.
func WriteWorkbook(path string, reports []Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("writing workbook: no reports")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating workbook directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, r := range reports {
		sheet := string(r.Category)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("renaming first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}

		if err := f.SetSheetRow(sheet, "A1", &[]any{ColName, ColOccurrence}); err != nil {
			return fmt.Errorf("writing %s header: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, "A1", "B1", bold); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
		for j, row := range r.Rows {
			cell := "A" + strconv.Itoa(j+2)
			if err := f.SetSheetRow(sheet, cell, &[]any{row.Label, row.Count}); err != nil {
				return fmt.Errorf("writing %s row %d: %w", sheet, j+1, err)
			}
		}
		if err := f.SetColWidth(sheet, "A", "A", labelWidth(r.Rows)); err != nil {
			return fmt.Errorf("sizing %s columns: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, "B", "B", 12); err != nil {
			return fmt.Errorf("sizing %s columns: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// labelWidth fits the name column to its longest label within sane bounds.
func labelWidth(rows []Row) float64 {
	width := float64(len(ColName))
	for _, r := range rows {
		if w := float64(len([]rune(r.Label))); w > width {
			width = w
		}
	}
	return min(max(width+2, 10), 80)
}

// ReadWorkbook loads reports back from a workbook written by
// WriteWorkbook. Sheets that are not category names are ignored.
func ReadWorkbook(path string) ([]Report, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var reports []Report
	for _, sheet := range f.GetSheetList() {
		c, err := entity.ParseCategory(sheet)
		if err != nil {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}

		rep := Report{Category: c, Rows: []Row{}}
		for i, cells := range rows {
			if i == 0 || len(cells) < 2 {
				continue
			}
			n, err := strconv.Atoi(cells[1])
			if err != nil {
				return nil, fmt.Errorf("sheet %s row %d: bad occurrence %q", sheet, i+1, cells[1])
			}
			rep.Rows = append(rep.Rows, Row{Label: cells[0], Count: n})
			rep.Unique++
			rep.TotalMentions += n
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

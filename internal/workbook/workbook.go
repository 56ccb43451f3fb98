// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workbook reads and writes the per-city base workbooks: the
// measurement sheet copied from the source, the TABLA_4 pivot and the
// TAGS label/value sheet.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names used in base workbooks.
const (
	SheetSource = "Sheet1"
	SheetPivot  = "TABLA_4"
	SheetTags   = "TAGS"
)

// Font applied to the generated sheets.
const (
	FontFamily = "Verdana"
	FontSize   = 6
)

// Workbook is an open spreadsheet bound to the path it is saved to.
type Workbook struct {
	f    *excelize.File
	path string
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Workbook{f: f, path: path}, nil
}

// Create starts an empty workbook that Save writes to path. Its only sheet
// is named first.
func Create(path, first string) (*Workbook, error) {
	f := excelize.NewFile()
	if first != "" && first != SheetSource {
		if err := f.SetSheetName(SheetSource, first); err != nil {
			f.Close()
			return nil, fmt.Errorf("naming sheet %s: %w", first, err)
		}
	}
	return &Workbook{f: f, path: path}, nil
}

// Path returns the file the workbook saves to.
func (w *Workbook) Path() string { return w.path }

// Save writes the workbook back to its path.
func (w *Workbook) Save() error {
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// Sheets returns the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// HasSheet reports whether the workbook contains sheet.
func (w *Workbook) HasSheet(sheet string) bool {
	idx, err := w.f.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

// Rows returns the formatted cell values of sheet.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// WriteRows replaces the contents of sheet with rows, creating the sheet
// when absent. Other sheets are untouched.
func (w *Workbook) WriteRows(sheet string, rows [][]string) error {
	if err := w.clearSheet(sheet); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// clearSheet empties sheet in place so its position among the sheets is
// kept, or creates it.
func (w *Workbook) clearSheet(sheet string) error {
	if !w.HasSheet(sheet) {
		if _, err := w.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
		return nil
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	for r := len(rows); r >= 1; r-- {
		if err := w.f.RemoveRow(sheet, r); err != nil {
			return fmt.Errorf("clearing sheet %s: %w", sheet, err)
		}
	}
	return nil
}

// Activate makes sheet the one shown when the workbook is opened.
func (w *Workbook) Activate(sheet string) error {
	idx, err := w.f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return fmt.Errorf("sheet %s not found", sheet)
	}
	w.f.SetActiveSheet(idx)
	return nil
}

// ApplyFont sets the font of every used cell in each named sheet. Sheets
// that do not exist are reported as an error after the others are done.
func (w *Workbook) ApplyFont(family string, size float64, sheets ...string) error {
	style, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Family: family, Size: size},
	})
	if err != nil {
		return fmt.Errorf("creating font style: %w", err)
	}

	var missing []string
	for _, sheet := range sheets {
		if !w.HasSheet(sheet) {
			missing = append(missing, sheet)
			continue
		}
		rows, err := w.f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		cols := 0
		for _, r := range rows {
			if len(r) > cols {
				cols = len(r)
			}
		}
		if len(rows) == 0 || cols == 0 {
			continue
		}
		last, err := excelize.CoordinatesToCellName(cols, len(rows))
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return fmt.Errorf("styling sheet %s: %w", sheet, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("sheets not found for font change: %v", missing)
	}
	return nil
}

// FontOf returns the font family and size of cell in sheet. It is used to
// check generated workbooks.
func (w *Workbook) FontOf(sheet, cell string) (string, float64, error) {
	id, err := w.f.GetCellStyle(sheet, cell)
	if err != nil {
		return "", 0, err
	}
	style, err := w.f.GetStyle(id)
	if err != nil {
		return "", 0, err
	}
	if style == nil || style.Font == nil {
		return "", 0, nil
	}
	return style.Font.Family, style.Font.Size, nil
}

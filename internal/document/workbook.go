package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"pricebook/internal/util"
)

// Workbook is a Document backed by an in-memory excelize file. The template
// on disk is never written.
type Workbook struct {
	f *excelize.File

	// numFmtStyles caches derived styles by source style id and format.
	numFmtStyles map[numFmtKey]int
}

type numFmtKey struct {
	style  int
	format string
}

func OpenTemplate(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", path, err)
	}
	return NewWorkbook(f), nil
}

func NewWorkbook(f *excelize.File) *Workbook {
	return &Workbook{f: f, numFmtStyles: map[numFmtKey]int{}}
}

// File exposes the underlying excelize file for read-back in tests and
// tooling.
func (w *Workbook) File() *excelize.File { return w.f }

func (w *Workbook) Close() error { return w.f.Close() }

func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

func (w *Workbook) SheetByName(name string) (string, bool) {
	for _, s := range w.f.GetSheetList() {
		if util.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

func (w *Workbook) CopySheet(from, name string) error {
	src, err := w.f.GetSheetIndex(from)
	if err != nil {
		return err
	}
	if src < 0 {
		return fmt.Errorf("sheet %q not found", from)
	}
	dst, err := w.f.NewSheet(name)
	if err != nil {
		return fmt.Errorf("new sheet %q: %w", name, err)
	}
	return w.f.CopySheet(src, dst)
}

func (w *Workbook) RenameSheet(from, to string) error {
	return w.f.SetSheetName(from, to)
}

func (w *Workbook) CellText(sheet string, col, row int) (string, error) {
	return w.f.GetCellValue(sheet, cellName(col, row))
}

func (w *Workbook) SetText(sheet string, col, row int, value string) error {
	return w.f.SetCellStr(sheet, cellName(col, row), value)
}

func (w *Workbook) SetNumber(sheet string, col, row int, value float64) error {
	return w.f.SetCellFloat(sheet, cellName(col, row), value, -1, 64)
}

func (w *Workbook) ClearCell(sheet string, col, row int) error {
	return w.f.SetCellValue(sheet, cellName(col, row), nil)
}

// NumberFormat returns the custom number format of a cell, or "" when the
// cell uses a built-in format.
func (w *Workbook) NumberFormat(sheet string, col, row int) (string, error) {
	sid, err := w.f.GetCellStyle(sheet, cellName(col, row))
	if err != nil {
		return "", err
	}
	st, err := w.f.GetStyle(sid)
	if err != nil || st == nil || st.CustomNumFmt == nil {
		return "", err
	}
	return *st.CustomNumFmt, nil
}

// SetNumberFormat keeps the cell's font, fill and borders and swaps in a
// custom number format.
func (w *Workbook) SetNumberFormat(sheet string, col, row int, format string) error {
	cell := cellName(col, row)
	sid, err := w.f.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	key := numFmtKey{style: sid, format: format}
	id, ok := w.numFmtStyles[key]
	if !ok {
		st, err := w.f.GetStyle(sid)
		if err != nil {
			return err
		}
		if st == nil {
			st = &excelize.Style{}
		}
		numFmt := format
		st.NumFmt = 0
		st.CustomNumFmt = &numFmt
		if id, err = w.f.NewStyle(st); err != nil {
			return fmt.Errorf("number format style: %w", err)
		}
		w.numFmtStyles[key] = id
	}
	return w.f.SetCellStyle(sheet, cell, cell, id)
}

func (w *Workbook) InsertRows(sheet string, row, n int) error {
	if n <= 0 {
		return nil
	}
	return w.f.InsertRows(sheet, row, n)
}

func (w *Workbook) DeleteRow(sheet string, row int) error {
	return w.f.RemoveRow(sheet, row)
}

func (w *Workbook) RowHeight(sheet string, row int) (float64, error) {
	return w.f.GetRowHeight(sheet, row)
}

func (w *Workbook) SetRowHeight(sheet string, row int, height float64) error {
	return w.f.SetRowHeight(sheet, row, height)
}

func (w *Workbook) CopyRowStyle(sheet string, from, to int) error {
	_, lastCol, err := w.UsedRange(sheet)
	if err != nil {
		return err
	}
	for c := 1; c <= lastCol; c++ {
		sid, err := w.f.GetCellStyle(sheet, cellName(c, from))
		if err != nil {
			return err
		}
		dst := cellName(c, to)
		if err := w.f.SetCellStyle(sheet, dst, dst, sid); err != nil {
			return err
		}
	}
	height, err := w.f.GetRowHeight(sheet, from)
	if err != nil {
		return err
	}
	return w.f.SetRowHeight(sheet, to, height)
}

func (w *Workbook) ClearRow(sheet string, row int) error {
	_, lastCol, err := w.UsedRange(sheet)
	if err != nil {
		return err
	}
	for c := 1; c <= lastCol; c++ {
		cell := cellName(c, row)
		if err := w.f.SetCellValue(sheet, cell, nil); err != nil {
			return err
		}
		if err := w.f.SetCellStyle(sheet, cell, cell, 0); err != nil {
			return err
		}
	}
	return nil
}

// IsMerged reports whether a single merge covers the whole span.
func (w *Workbook) IsMerged(sheet string, row, fromCol, toCol int) (bool, error) {
	merges, err := w.f.GetMergeCells(sheet)
	if err != nil {
		return false, err
	}
	for _, m := range merges {
		sc, sr, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		ec, er, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		if sr <= row && row <= er && sc <= fromCol && toCol <= ec {
			return true, nil
		}
	}
	return false, nil
}

func (w *Workbook) Merge(sheet string, row, fromCol, toCol int) error {
	return w.f.MergeCell(sheet, cellName(fromCol, row), cellName(toCol, row))
}

func (w *Workbook) DefinedName(name string) (Anchor, bool) {
	for _, dn := range w.f.GetDefinedName() {
		if !util.EqualFold(dn.Name, name) {
			continue
		}
		if a, ok := parseRefersTo(dn.RefersTo); ok {
			return a, true
		}
	}
	return Anchor{}, false
}

// UsedRange is the last row and column holding a value, widened to the
// sheet's recorded dimension so styled but empty rows count too.
func (w *Workbook) UsedRange(sheet string) (int, int, error) {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	lastRow, lastCol := len(rows), 0
	for _, r := range rows {
		if len(r) > lastCol {
			lastCol = len(r)
		}
	}
	if dim, err := w.f.GetSheetDimension(sheet); err == nil && dim != "" {
		end := dim
		if i := strings.LastIndex(dim, ":"); i >= 0 {
			end = dim[i+1:]
		}
		if c, r, err := excelize.CellNameToCoordinates(end); err == nil {
			lastRow = max(lastRow, r)
			lastCol = max(lastCol, c)
		}
	}
	return lastRow, lastCol, nil
}

func (w *Workbook) SetProperties(title string, at time.Time) error {
	stamp := at.UTC().Format(time.RFC3339)
	return w.f.SetDocProps(&excelize.DocProperties{
		Title:    title,
		Creator:  "pricebook",
		Created:  stamp,
		Modified: stamp,
	})
}

func (w *Workbook) Bytes() ([]byte, error) {
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// parseRefersTo reads "Sheet1!$C$10", "'My Sheet'!$C$10:$D$12" or
// "=Sheet1!$C$10".
func parseRefersTo(ref string) (Anchor, bool) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "=")
	i := strings.LastIndex(ref, "!")
	if i <= 0 {
		return Anchor{}, false
	}
	sheet := ref[:i]
	if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	cell := ref[i+1:]
	if j := strings.Index(cell, ":"); j >= 0 {
		cell = cell[:j]
	}
	col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(cell, "$", ""))
	if err != nil {
		return Anchor{}, false
	}
	return Anchor{Sheet: sheet, Col: col, Row: row}, true
}

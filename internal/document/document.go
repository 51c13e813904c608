// Package document wraps a price book template as a mutable grid of
// sheets, rows and cells. Rows and columns are 1-based.
package document

import "time"

// Document is everything the assembler needs from a spreadsheet.
type Document interface {
	Sheets() []string
	// SheetByName finds a sheet ignoring case and returns its actual name.
	SheetByName(name string) (string, bool)
	// CopySheet creates sheet name as a copy of from.
	CopySheet(from, name string) error
	RenameSheet(from, to string) error

	CellText(sheet string, col, row int) (string, error)
	SetText(sheet string, col, row int, value string) error
	SetNumber(sheet string, col, row int, value float64) error
	// ClearCell removes the value and keeps the style.
	ClearCell(sheet string, col, row int) error
	NumberFormat(sheet string, col, row int) (string, error)
	SetNumberFormat(sheet string, col, row int, format string) error

	// InsertRows inserts n blank rows before row.
	InsertRows(sheet string, row, n int) error
	DeleteRow(sheet string, row int) error
	RowHeight(sheet string, row int) (float64, error)
	SetRowHeight(sheet string, row int, height float64) error
	// CopyRowStyle copies cell styles and height from one row to another.
	CopyRowStyle(sheet string, from, to int) error
	// ClearRow removes values and styles from every used column of row.
	ClearRow(sheet string, row int) error

	IsMerged(sheet string, row, fromCol, toCol int) (bool, error)
	Merge(sheet string, row, fromCol, toCol int) error

	DefinedName(name string) (Anchor, bool)
	UsedRange(sheet string) (lastRow, lastCol int, err error)

	SetProperties(title string, at time.Time) error
	Bytes() ([]byte, error)
}

// Anchor is the top-left cell a defined name refers to.
type Anchor struct {
	Sheet string
	Col   int
	Row   int
}

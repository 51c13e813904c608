package document

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pricebook/internal/util"
)

// Logical column names written by the assembler.
const (
	ColItem        = "ITEM"
	ColDescription = "DESCRIPTION"
	ColListPrice   = "LIST PRICE"
	ColFourK       = "PPD $4000"
	ColTwelveK     = "PPD $12,500"
	ColFOB         = "FOB"
	ColUPC         = "UPC"
	ColQty         = "QTY"
	ColMasterPack  = "MASTER PACK"
	ColPallet      = "PALLET"
)

// Synonyms lists, per logical column, the header spellings tried in order.
// Matching is done on the normalized form, so punctuation, spacing and line
// breaks in the template header do not matter.
var Synonyms = map[string][]string{
	ColItem:        {"ITEM", "ITEM NO.", "ITEMNO", "ITEM#", "ITEMNUMBER"},
	ColDescription: {"DESCRIPTION", "PRODUCT DESCRIPTION"},
	ColListPrice:   {"LIST PRICE", "LISTPRICE", "PRICE"},
	ColFourK:       {"PPD $4000", "PP1", "PPD 4000", "PPD$4000"},
	ColTwelveK:     {"PPD $12,500", "PP2", "PPD 12500", "PPD$12500", "PPD $12 500"},
	ColFOB:         {"FOB", "FOB PRICE"},
	ColUPC:         {"UPC", "UPC CODE", "GTIN"},
	ColQty:         {"QTY", "QTY PER UNIT", "PACK QTY", "UNIT QTY"},
	ColMasterPack:  {"MASTER PACK", "MASTER PACK QTY", "CASE PACK"},
	ColPallet:      {"PALLET", "PALLET QTY"},
}

// Columns maps normalized header text to a column index for one sheet.
type Columns struct {
	Sheet    string
	byHeader map[string]int
}

// BindColumns scans headerRow once. When a header repeats, the leftmost
// column wins.
func BindColumns(doc Document, sheet string, headerRow int) (Columns, error) {
	cols := Columns{Sheet: sheet, byHeader: map[string]int{}}
	_, lastCol, err := doc.UsedRange(sheet)
	if err != nil {
		return cols, err
	}
	for c := 1; c <= lastCol; c++ {
		raw, err := doc.CellText(sheet, c, headerRow)
		if err != nil {
			return cols, err
		}
		key := util.NormalizeHeader(raw)
		if key == "" {
			continue
		}
		if _, seen := cols.byHeader[key]; !seen {
			cols.byHeader[key] = c
		}
	}
	return cols, nil
}

// Resolve returns the column for a logical name. Names without a synonym
// entry match only themselves.
func (c Columns) Resolve(logical string) (int, bool) {
	aliases, ok := Synonyms[strings.ToUpper(logical)]
	if !ok {
		aliases = []string{logical}
	}
	for _, alias := range aliases {
		if col, ok := c.byHeader[util.NormalizeHeader(alias)]; ok {
			return col, true
		}
	}
	return 0, false
}

// Set writes value into the logical column of row. Unresolved columns are
// skipped. Null values clear the cell.
func (c Columns) Set(doc Document, row int, logical string, value any) error {
	col, ok := c.Resolve(logical)
	if !ok {
		return nil
	}
	switch v := value.(type) {
	case nil:
		return doc.ClearCell(c.Sheet, col, row)
	case string:
		if v == "" {
			return doc.ClearCell(c.Sheet, col, row)
		}
		return doc.SetText(c.Sheet, col, row, v)
	case decimal.NullDecimal:
		if !v.Valid {
			return doc.ClearCell(c.Sheet, col, row)
		}
		return doc.SetNumber(c.Sheet, col, row, v.Decimal.InexactFloat64())
	case decimal.Decimal:
		return doc.SetNumber(c.Sheet, col, row, v.InexactFloat64())
	case int:
		return doc.SetNumber(c.Sheet, col, row, float64(v))
	case *int:
		if v == nil {
			return doc.ClearCell(c.Sheet, col, row)
		}
		return doc.SetNumber(c.Sheet, col, row, float64(*v))
	case float64:
		return doc.SetNumber(c.Sheet, col, row, v)
	default:
		return doc.SetText(c.Sheet, col, row, fmt.Sprint(v))
	}
}

// FormatRange applies a number format to rows fromRow..toRow of each
// resolvable logical column.
func (c Columns) FormatRange(doc Document, fromRow, toRow int, format string, logical ...string) error {
	for _, name := range logical {
		col, ok := c.Resolve(name)
		if !ok {
			continue
		}
		for r := fromRow; r <= toRow; r++ {
			if err := doc.SetNumberFormat(c.Sheet, col, r, format); err != nil {
				return err
			}
		}
	}
	return nil
}

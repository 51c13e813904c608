package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"

	"pricebook/internal"
	"pricebook/internal/document"
	"pricebook/internal/util"
)

// Template layout. Rows 3..5 are prototypes: their styles are copied onto
// inserted rows, and the first block of each sheet is written into them.
const (
	HeaderRow     = 2
	SectionRow    = 3
	SubsectionRow = 4
	ItemRow       = 5

	SectionCol       = 3
	SubsectionCol    = 2
	SubsectionEndCol = 3

	CurrencyFormat = "$#,##0.00"
)

var priceColumns = []string{
	document.ColListPrice,
	document.ColFourK,
	document.ColTwelveK,
	document.ColFOB,
}

type Stats struct {
	Rows     int
	Sheets   int
	Leaves   int
	Degraded int
}

// leaf is one (section, subsection, accessory) block of rows.
type leaf struct {
	WS         int
	Section    int
	Subsection int
	Accessory  int
	Rows       []internal.PriceRow
}

type wsGroup struct {
	WS     int
	Leaves []leaf
}

// groupRows orders rows by ws, section, subsection and accessory. Rows in
// the same leaf keep their source order.
func groupRows(rows []internal.PriceRow) []wsGroup {
	sorted := make([]internal.PriceRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.WS != b.WS {
			return a.WS < b.WS
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Subsection != b.Subsection {
			return a.Subsection < b.Subsection
		}
		return a.Accessory < b.Accessory
	})

	var groups []wsGroup
	for _, r := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].WS != r.WS {
			groups = append(groups, wsGroup{WS: r.WS})
		}
		g := &groups[len(groups)-1]
		n := len(g.Leaves)
		if n == 0 || g.Leaves[n-1].Section != r.Section || g.Leaves[n-1].Subsection != r.Subsection || g.Leaves[n-1].Accessory != r.Accessory {
			g.Leaves = append(g.Leaves, leaf{WS: r.WS, Section: r.Section, Subsection: r.Subsection, Accessory: r.Accessory})
			n++
		}
		g.Leaves[n-1].Rows = append(g.Leaves[n-1].Rows, r)
	}
	return groups
}

type sectionKey struct {
	WS      int
	Section int
}

// leafState is threaded through writeLeaf. cursor is the row the next
// block starts at; SectionRow means the prototype rows are still unused.
type leafState struct {
	lastSection *sectionKey
	cursor      int
}

// sheetWriter holds what stays fixed while one sheet is written.
type sheetWriter struct {
	doc        document.Document
	sheet      string
	cols       document.Columns
	itemHeight float64
}

// Assemble writes rows into doc. Each ws group goes to its own sheet.
func Assemble(ctx context.Context, doc document.Document, rows []internal.PriceRow, logger *log.Logger) (Stats, error) {
	if logger == nil {
		logger = log.Default()
	}
	stats := Stats{Rows: len(rows)}
	for _, r := range rows {
		if _, ok := util.ParseComboKeyStrict(r.ComboID); !ok {
			stats.Degraded++
		}
	}

	used := map[string]bool{}
	var state leafState
	for _, g := range groupRows(rows) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		w, start, err := prepareSheet(doc, g, used, logger)
		if err != nil {
			return stats, fmt.Errorf("ws %d: %w", g.WS, err)
		}
		stats.Sheets++

		state.cursor = start
		for _, lf := range g.Leaves {
			state, err = w.writeLeaf(state, lf)
			if err != nil {
				return stats, fmt.Errorf("ws %d sec %d ss %d: %w", lf.WS, lf.Section, lf.Subsection, err)
			}
			stats.Leaves++
		}
	}
	return stats, nil
}

// prepareSheet picks and renames the sheet for g, finds the start row and
// clears everything below the prototype rows.
func prepareSheet(doc document.Document, g wsGroup, used map[string]bool, logger *log.Logger) (*sheetWriter, int, error) {
	preferred := util.SanitizeSheetName(internal.SplitDisplay(g.Leaves[0].Rows[0].DisplayLabel).Sheet)
	if preferred == "" {
		preferred = fmt.Sprintf("WS%02d", g.WS)
	}

	sheet, found := findSheet(doc, g.WS, preferred, used)
	start := SectionRow
	anchorName := fmt.Sprintf("ANCHOR_WS%02d", g.WS)
	if a, ok := doc.DefinedName(anchorName); ok {
		if actual, exists := doc.SheetByName(a.Sheet); exists {
			switch {
			case used[actual]:
				logger.Printf("WARN: %s points at sheet %q which is already written; ignoring the anchor", anchorName, actual)
			default:
				if !found || !util.EqualFold(actual, sheet) {
					expected := preferred
					if found {
						expected = sheet
					}
					logger.Printf("WARN: %s found on sheet %q, expected %q; using %q", anchorName, actual, expected, actual)
				}
				sheet, found = actual, true
				if a.Row > ItemRow {
					start = a.Row
				}
			}
		}
	}

	if !found {
		name, err := copyFirstSheet(doc, preferred)
		if err != nil {
			return nil, 0, err
		}
		sheet = name
	} else if !util.EqualFold(sheet, preferred) {
		name := uniqueSheetName(doc, preferred)
		if err := doc.RenameSheet(sheet, name); err != nil {
			return nil, 0, fmt.Errorf("rename sheet %q: %w", sheet, err)
		}
		sheet = name
	}
	used[sheet] = true

	cols, err := document.BindColumns(doc, sheet, HeaderRow)
	if err != nil {
		return nil, 0, fmt.Errorf("bind columns: %w", err)
	}

	lastRow, _, err := doc.UsedRange(sheet)
	if err != nil {
		return nil, 0, err
	}
	for r := lastRow; r > ItemRow; r-- {
		if err := doc.DeleteRow(sheet, r); err != nil {
			return nil, 0, fmt.Errorf("clear row %d: %w", r, err)
		}
	}

	height, err := doc.RowHeight(sheet, ItemRow)
	if err != nil {
		return nil, 0, err
	}
	return &sheetWriter{doc: doc, sheet: sheet, cols: cols, itemHeight: height}, start, nil
}

// findSheet looks up preferred by name, then the sheet at position ws-1.
// Sheets already written in this run are never reused.
func findSheet(doc document.Document, ws int, preferred string, used map[string]bool) (string, bool) {
	if s, ok := doc.SheetByName(preferred); ok && !used[s] {
		return s, true
	}
	sheets := doc.Sheets()
	if idx := max(0, ws-1); idx < len(sheets) && !used[sheets[idx]] {
		return sheets[idx], true
	}
	return "", false
}

// copyFirstSheet copies the first sheet under a free variant of name.
func copyFirstSheet(doc document.Document, name string) (string, error) {
	sheets := doc.Sheets()
	if len(sheets) == 0 {
		return "", fmt.Errorf("template has no sheets")
	}
	name = uniqueSheetName(doc, name)
	if err := doc.CopySheet(sheets[0], name); err != nil {
		return "", fmt.Errorf("copy sheet %q: %w", sheets[0], err)
	}
	return name, nil
}

// uniqueSheetName returns desired, or "desired (n)" for the first free n,
// kept within the 31 character sheet name limit.
func uniqueSheetName(doc document.Document, desired string) string {
	if _, taken := doc.SheetByName(desired); !taken {
		return desired
	}
	for n := 2; ; n++ {
		suffix := " (" + strconv.Itoa(n) + ")"
		name := util.TruncateRunes(desired, 31-len(suffix)) + suffix
		if _, taken := doc.SheetByName(name); !taken {
			return name
		}
	}
}

type leafLabels struct {
	Section    string
	Subsection string
}

func labelsFor(lf leaf) leafLabels {
	path := internal.SplitDisplay(lf.Rows[0].DisplayLabel)
	out := leafLabels{Section: path.Section, Subsection: path.Subsection}
	if out.Section == "" {
		out.Section = fmt.Sprintf("SEC %02d", lf.Section)
	}
	if out.Subsection == "" {
		out.Subsection = fmt.Sprintf("SS %02d", lf.Subsection)
	}
	if lf.Rows[0].IsAccessory() {
		if path.Accessories != "" {
			out.Subsection = path.Accessories
		} else {
			out.Subsection += " – ACCESSORIES"
		}
	}
	return out
}

// writeLeaf writes one block: headers, item rows and a spacer. At the
// prototype position headers and the first item go into rows 3..5 in place;
// anywhere else rows are inserted at the cursor and styled from the
// prototypes.
func (w *sheetWriter) writeLeaf(st leafState, lf leaf) (leafState, error) {
	labels := labelsFor(lf)
	key := sectionKey{WS: lf.WS, Section: lf.Section}
	newSection := st.lastSection == nil || *st.lastSection != key

	var first int
	if st.cursor == SectionRow {
		if newSection {
			if err := w.doc.SetText(w.sheet, SectionCol, SectionRow, labels.Section); err != nil {
				return st, err
			}
		}
		if err := w.subsectionHeader(SubsectionRow, labels.Subsection); err != nil {
			return st, err
		}
		first = ItemRow
	} else {
		n := 1
		if newSection {
			n = 2
		}
		if err := w.doc.InsertRows(w.sheet, st.cursor, n); err != nil {
			return st, err
		}
		r := st.cursor
		if newSection {
			if err := w.doc.CopyRowStyle(w.sheet, SectionRow, r); err != nil {
				return st, err
			}
			if err := w.doc.SetText(w.sheet, SectionCol, r, labels.Section); err != nil {
				return st, err
			}
			r++
		}
		if err := w.doc.CopyRowStyle(w.sheet, SubsectionRow, r); err != nil {
			return st, err
		}
		if err := w.subsectionHeader(r, labels.Subsection); err != nil {
			return st, err
		}
		first = r + 1
	}

	items := lf.Rows
	if first == ItemRow {
		if err := w.doc.InsertRows(w.sheet, first+1, len(items)-1); err != nil {
			return st, err
		}
	} else if err := w.doc.InsertRows(w.sheet, first, len(items)); err != nil {
		return st, err
	}
	for i, row := range items {
		r := first + i
		if r != ItemRow {
			if err := w.doc.CopyRowStyle(w.sheet, ItemRow, r); err != nil {
				return st, err
			}
		}
		if err := w.writeItem(r, row); err != nil {
			return st, fmt.Errorf("item %s: %w", row.Item, err)
		}
	}
	last := first + len(items) - 1
	if err := w.cols.FormatRange(w.doc, first, last, CurrencyFormat, priceColumns...); err != nil {
		return st, err
	}

	spacer := last + 1
	if err := w.doc.InsertRows(w.sheet, spacer, 1); err != nil {
		return st, err
	}
	if err := w.doc.ClearRow(w.sheet, spacer); err != nil {
		return st, err
	}
	if err := w.doc.SetRowHeight(w.sheet, spacer, w.itemHeight); err != nil {
		return st, err
	}

	return leafState{lastSection: &key, cursor: spacer + 1}, nil
}

func (w *sheetWriter) subsectionHeader(row int, text string) error {
	merged, err := w.doc.IsMerged(w.sheet, row, SubsectionCol, SubsectionEndCol)
	if err != nil {
		return err
	}
	if !merged {
		if err := w.doc.Merge(w.sheet, row, SubsectionCol, SubsectionEndCol); err != nil {
			return err
		}
	}
	return w.doc.SetText(w.sheet, SubsectionCol, row, text)
}

func (w *sheetWriter) writeItem(r int, row internal.PriceRow) error {
	qty := row.QtyPerUnit
	if qty <= 0 {
		qty = 1
	}
	values := []struct {
		col   string
		value any
	}{
		{document.ColItem, row.Item},
		{document.ColDescription, row.Description},
		{document.ColListPrice, row.ListPrice},
		{document.ColFourK, row.FourKPrice},
		{document.ColTwelveK, row.TwelveKPrice},
		{document.ColFOB, row.FOBPrice},
		{document.ColUPC, row.UPC},
		{document.ColQty, qty},
		{document.ColMasterPack, row.MasterPackQty},
		{document.ColPallet, row.PalletQty},
	}
	for _, v := range values {
		if err := w.cols.Set(w.doc, r, v.col, v.value); err != nil {
			return err
		}
	}
	return nil
}

package pipeline

import (
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pricebook/internal"
)

// ExportRowsToXLSX writes resolved rows as one flat sheet for auditing a
// source without a template.
func ExportRowsToXLSX(rows []internal.PriceRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"combo_id", "ws", "section", "subsection", "accessory", "display_label",
		"item", "description",
		"list_price", "price_4k", "price_12k", "alt_price_4k", "alt_price_12k", "fob_price",
		"upc", "qty_per_unit", "master_pack_qty", "pallet_qty",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.ComboID)
		set(2, row.WS)
		set(3, row.Section)
		set(4, row.Subsection)
		set(5, row.Accessory)
		set(6, row.DisplayLabel)
		set(7, row.Item)
		set(8, row.Description)
		set(9, derefDecimal(row.ListPrice))
		set(10, derefDecimal(row.FourKPrice))
		set(11, derefDecimal(row.TwelveKPrice))
		set(12, derefDecimal(row.AltFourKPrice))
		set(13, derefDecimal(row.AltTwelveKPrice))
		set(14, derefDecimal(row.FOBPrice))
		set(15, row.UPC)
		set(16, row.QtyPerUnit)
		set(17, derefInt(row.MasterPackQty))
		set(18, derefInt(row.PalletQty))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefDecimal(v decimal.NullDecimal) any {
	if !v.Valid {
		return ""
	}
	return v.Decimal.InexactFloat64()
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

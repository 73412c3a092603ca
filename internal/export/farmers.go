// Package export renders farmer data as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"petani-backend/internal/store"
)

const SheetName = "Riwayat Petani"

var FarmerHeader = []string{
	"ID",
	"Nama",
	"NIK",
	"Tanggal Lahir",
	"No HP",
	"Alamat",
	"Latitude",
	"Longitude",
	"Luas Lahan (ha)",
	"Luas Terhitung (m²)",
	"Lahan (WKT)",
}

var columnWidths = []float64{8, 24, 20, 14, 16, 32, 12, 12, 16, 20, 60}

// Farmers builds an .xlsx workbook with one row per farmer.
func Farmers(rows []store.FarmerView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range FarmerHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("header %s: %w", cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, columnWidths[i]); err != nil {
			return nil, fmt.Errorf("column width %s: %w", col, err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(FarmerHeader), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			r.ID,
			r.Nama,
			r.NIK,
			dateText(r),
			r.NoHP,
			r.Alamat,
			optional(r.Latitude),
			optional(r.Longitude),
			r.LuasLahan,
			r.LuasTerhitungM2,
			r.LahanWKT,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func dateText(r store.FarmerView) string {
	if r.TanggalLahir == nil {
		return ""
	}
	return r.TanggalLahir.Format("2006-01-02")
}

func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

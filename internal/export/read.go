package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FarmerRow is one data row of an uploaded workbook, as text. Line is the
// 1-based spreadsheet row.
type FarmerRow struct {
	Line         int
	Nama         string
	NIK          string
	TanggalLahir string
	NoHP         string
	Alamat       string
	Latitude     string
	Longitude    string
	LuasLahan    string
	Lahan        string
}

// ReadFarmers parses the first sheet of an .xlsx in the layout Farmers
// writes. Columns are matched by header text, so extra or reordered columns
// (such as ID) are fine; blank rows are skipped.
func ReadFarmers(r io.Reader) ([]FarmerRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"nama", "nik"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("missing column %q", need)
		}
	}

	cell := func(row []string, header string) string {
		i, ok := col[strings.ToLower(header)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]FarmerRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		out = append(out, FarmerRow{
			Line:         i + 2,
			Nama:         cell(row, "Nama"),
			NIK:          cell(row, "NIK"),
			TanggalLahir: cell(row, "Tanggal Lahir"),
			NoHP:         cell(row, "No HP"),
			Alamat:       cell(row, "Alamat"),
			Latitude:     cell(row, "Latitude"),
			Longitude:    cell(row, "Longitude"),
			LuasLahan:    cell(row, "Luas Lahan (ha)"),
			Lahan:        cell(row, "Lahan (WKT)"),
		})
	}
	return out, nil
}

// Package records serves the commodity and harvest forms. Both are the same
// routine over a different table, described by a Kind.
package records

import "petani-backend/internal/store"

// Kind describes one child-record form: where it lives, which table it
// writes and the labels it shows.
type Kind struct {
	Page        string
	Path        string
	Table       store.ChildTable
	AmountField string
	DateField   string
	AmountLabel string
	DateLabel   string
	Success     string
}

var (
	Komoditas = Kind{
		Page:        "isi_komoditas",
		Path:        "/isi_komoditas",
		Table:       store.KomoditasTable,
		AmountField: "luas_tanam",
		DateField:   "tanggal_tanam",
		AmountLabel: "Luas Tanam (ha)",
		DateLabel:   "Tanggal Tanam",
		Success:     "Data komoditas berhasil disimpan.",
	}
	HasilPanen = Kind{
		Page:        "isi_hasil_panen",
		Path:        "/isi_hasil_panen",
		Table:       store.HasilPanenTable,
		AmountField: "jumlah_panen",
		DateField:   "tanggal_panen",
		AmountLabel: "Jumlah Panen (kg)",
		DateLabel:   "Tanggal Panen",
		Success:     "Data hasil panen berhasil disimpan.",
	}
)

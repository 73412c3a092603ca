package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"petani-backend/internal/apperr"
	"petani-backend/internal/audit"
	"petani-backend/internal/models"
)

// ChildTable names a table of rows hanging off petani and the columns that
// hold the commodity name, the amount and the date.
type ChildTable struct {
	Table        string
	NameColumn   string
	AmountColumn string
	DateColumn   string
}

var (
	KomoditasTable = ChildTable{
		Table:        "komoditas",
		NameColumn:   "nama_komoditas",
		AmountColumn: "luas_tanam",
		DateColumn:   "tanggal_tanam",
	}
	HasilPanenTable = ChildTable{
		Table:        "hasil_panen",
		NameColumn:   "nama_komoditas",
		AmountColumn: "jumlah_panen",
		DateColumn:   "tanggal_panen",
	}
)

type ChildRecord struct {
	PetaniID uint
	Name     string
	Amount   float64
	Date     time.Time
}

// GormRecordStore implements RecordStore.
type GormRecordStore struct{ db *gorm.DB }

func NewRecordStore(db *gorm.DB) *GormRecordStore { return &GormRecordStore{db: db} }

// Create inserts rec into table after checking that the farmer belongs to
// actor. Only the predefined tables are accepted.
func (s *GormRecordStore) Create(ctx context.Context, actor Actor, table ChildTable, rec ChildRecord) error {
	if table != KomoditasTable && table != HasilPanenTable {
		return fmt.Errorf("%w: unknown table %q", apperr.ErrDatabase, table.Table)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&models.Petani{}).
			Where("id = ? AND user_id = ?", rec.PetaniID, actor.UserID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned == 0 {
			return apperr.ErrNotFound
		}

		row := map[string]interface{}{
			"petani_id":        rec.PetaniID,
			table.NameColumn:   rec.Name,
			table.AmountColumn: rec.Amount,
			table.DateColumn:   rec.Date,
			"created_at":       time.Now(),
		}
		if err := tx.Table(table.Table).Create(row).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:     actor.UserID,
			Username:   actor.Username,
			EntityType: table.Table,
			EntityID:   rec.PetaniID,
			Action:     models.AuditActionCreate,
			Description: fmt.Sprintf("%s: %s %.2f (%s)",
				table.Table, rec.Name, rec.Amount, rec.Date.Format("2006-01-02")),
			After: row,
		})
	})
	return classify(err)
}

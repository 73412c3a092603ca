package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"petani-backend/internal/apperr"
	"petani-backend/internal/audit"
	"petani-backend/internal/geometry"
	"petani-backend/internal/models"
)

const entityPetani = "petani"

// farmerColumns renders the spatial columns as text; lokasi is x=lon, y=lat.
const farmerColumns = `id, user_id, nama, nik, tanggal_lahir, no_hp, alamat, luas_lahan,
	ST_Y(lokasi) AS latitude, ST_X(lokasi) AS longitude,
	COALESCE(ST_AsText(lahan), '') AS lahan_wkt,
	COALESCE(ST_Area(lahan::geography), 0) AS luas_terhitung_m2,
	created_at, updated_at`

// GormFarmerStore implements FarmerStore on PostgreSQL/PostGIS.
type GormFarmerStore struct{ db *gorm.DB }

func NewFarmerStore(db *gorm.DB) *GormFarmerStore { return &GormFarmerStore{db: db} }

func (s *GormFarmerStore) Create(ctx context.Context, actor Actor, in FarmerInput) (uint, error) {
	if in.Lokasi == nil || in.LahanWKT == "" || in.LuasLahan == nil {
		return 0, fmt.Errorf("%w: lokasi, lahan and luas_lahan are required", apperr.ErrValidation)
	}

	p := models.Petani{
		UserID:       actor.UserID,
		Nama:         in.Nama,
		NIK:          in.NIK,
		TanggalLahir: in.TanggalLahir,
		NoHP:         in.NoHP,
		Alamat:       in.Alamat,
		LuasLahan:    *in.LuasLahan,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE petani
			SET lokasi = ST_SetSRID(ST_MakePoint(?, ?), ?), lahan = ST_GeomFromText(?, ?)
			WHERE id = ?`,
			in.Lokasi.Lon, in.Lokasi.Lat, geometry.SRID, in.LahanWKT, geometry.SRID, p.ID).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			Username:    actor.Username,
			EntityType:  entityPetani,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Petani ditambahkan: %s (NIK %s)", p.Nama, p.NIK),
			After:       snapshot(p, in.LahanWKT),
		})
	})
	if err != nil {
		return 0, classify(err)
	}
	return p.ID, nil
}

func (s *GormFarmerStore) ListByOwner(ctx context.Context, ownerID uint) ([]FarmerView, error) {
	var out []FarmerView
	err := s.db.WithContext(ctx).
		Raw("SELECT "+farmerColumns+" FROM petani WHERE user_id = ? ORDER BY created_at DESC, id DESC", ownerID).
		Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *GormFarmerStore) FindForOwner(ctx context.Context, id, ownerID uint) (*FarmerView, error) {
	var out []FarmerView
	err := s.db.WithContext(ctx).
		Raw("SELECT "+farmerColumns+" FROM petani WHERE id = ? AND user_id = ?", id, ownerID).
		Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	if len(out) == 0 {
		return nil, apperr.ErrNotFound
	}
	return &out[0], nil
}

// Update never matches on id alone: the row must also belong to actor.
func (s *GormFarmerStore) Update(ctx context.Context, actor Actor, id uint, in FarmerInput) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Petani
		if err := tx.Where("id = ? AND user_id = ?", id, actor.UserID).First(&before).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"nama":   in.Nama,
			"nik":    in.NIK,
			"no_hp":  in.NoHP,
			"alamat": in.Alamat,
		}
		if in.TanggalLahir != nil {
			updates["tanggal_lahir"] = *in.TanggalLahir
		}
		if in.LuasLahan != nil {
			updates["luas_lahan"] = *in.LuasLahan
		}
		if in.Lokasi != nil {
			updates["lokasi"] = gorm.Expr("ST_SetSRID(ST_MakePoint(?, ?), ?)", in.Lokasi.Lon, in.Lokasi.Lat, geometry.SRID)
		}
		if in.LahanWKT != "" {
			updates["lahan"] = gorm.Expr("ST_GeomFromText(?, ?)", in.LahanWKT, geometry.SRID)
		}

		res := tx.Model(&models.Petani{}).Where("id = ? AND user_id = ?", id, actor.UserID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}

		var after models.Petani
		if err := tx.Where("id = ? AND user_id = ?", id, actor.UserID).First(&after).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			Username:    actor.Username,
			EntityType:  entityPetani,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Petani diperbarui: %s", after.Nama),
			Before:      snapshot(before, ""),
			After:       snapshot(after, in.LahanWKT),
		})
	})
	return classify(err)
}

// Delete removes the farmer and its child rows. A missing or foreign row is
// reported as apperr.ErrNotFound.
func (s *GormFarmerStore) Delete(ctx context.Context, actor Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var before models.Petani
		if err := tx.Where("id = ? AND user_id = ?", id, actor.UserID).First(&before).Error; err != nil {
			return err
		}

		// The foreign keys cascade on PostgreSQL; deleting explicitly keeps
		// the behaviour identical on databases that do not enforce them.
		if err := tx.Where("petani_id = ?", id).Delete(&models.Komoditas{}).Error; err != nil {
			return err
		}
		if err := tx.Where("petani_id = ?", id).Delete(&models.HasilPanen{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, actor.UserID).Delete(&models.Petani{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.UserID,
			Username:    actor.Username,
			EntityType:  entityPetani,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Petani dihapus: %s (NIK %s)", before.Nama, before.NIK),
			Before:      snapshot(before, ""),
		})
	})
	return classify(err)
}

func (s *GormFarmerStore) Options(ctx context.Context, ownerID uint) ([]FarmerOption, error) {
	var out []FarmerOption
	err := s.db.WithContext(ctx).Model(&models.Petani{}).
		Select("id, nama").
		Where("user_id = ?", ownerID).
		Order("nama ASC, id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *GormFarmerStore) Parcels(ctx context.Context, ownerID uint) ([]Parcel, error) {
	var out []Parcel
	err := s.db.WithContext(ctx).
		Raw(`SELECT id, nama, luas_lahan, ST_AsGeoJSON(lahan) AS geojson
			FROM petani WHERE user_id = ? AND lahan IS NOT NULL ORDER BY id`, ownerID).
		Scan(&out).Error
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *GormFarmerStore) Summary(ctx context.Context, ownerID uint) (*Summary, error) {
	db := s.db.WithContext(ctx)
	out := &Summary{Terbaru: []FarmerOption{}}

	var petani struct {
		Jumlah int64
		Total  float64
	}
	if err := db.Model(&models.Petani{}).
		Select("COUNT(*) AS jumlah, COALESCE(SUM(luas_lahan), 0) AS total").
		Where("user_id = ?", ownerID).
		Scan(&petani).Error; err != nil {
		return nil, classify(err)
	}
	out.JumlahPetani, out.TotalLuasLahan = petani.Jumlah, petani.Total

	if err := db.Table("komoditas").
		Joins("JOIN petani ON petani.id = komoditas.petani_id").
		Where("petani.user_id = ?", ownerID).
		Count(&out.JumlahKomoditas).Error; err != nil {
		return nil, classify(err)
	}

	var panen struct {
		Jumlah int64
		Total  float64
	}
	if err := db.Table("hasil_panen").
		Select("COUNT(*) AS jumlah, COALESCE(SUM(hasil_panen.jumlah_panen), 0) AS total").
		Joins("JOIN petani ON petani.id = hasil_panen.petani_id").
		Where("petani.user_id = ?", ownerID).
		Scan(&panen).Error; err != nil {
		return nil, classify(err)
	}
	out.JumlahPanen, out.TotalPanen = panen.Jumlah, panen.Total

	if err := db.Model(&models.Petani{}).
		Select("id, nama").
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Limit(5).
		Scan(&out.Terbaru).Error; err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// snapshot is the audit representation of a farmer row.
func snapshot(p models.Petani, lahanWKT string) map[string]interface{} {
	m := map[string]interface{}{
		"id":            p.ID,
		"nama":          p.Nama,
		"nik":           p.NIK,
		"tanggal_lahir": p.TanggalLahir,
		"no_hp":         p.NoHP,
		"alamat":        p.Alamat,
		"luas_lahan":    p.LuasLahan,
	}
	if lahanWKT != "" {
		m["lahan"] = lahanWKT
	}
	return m
}

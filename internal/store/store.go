package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"gorm.io/gorm"

	"petani-backend/internal/apperr"
	"petani-backend/internal/geometry"
	"petani-backend/internal/models"
)

// Actor is the authenticated user on whose behalf a store call runs. Every
// farmer query is scoped to Actor.UserID.
type Actor struct {
	UserID   uint
	Username string
}

// UserStore abstracts credential persistence.
type UserStore interface {
	// Create persists u or returns apperr.ErrDuplicateUsername.
	Create(ctx context.Context, u *models.User) error
	// FindByUsername returns the user or apperr.ErrNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// FarmerInput carries validated form values. On update, nil pointers and an
// empty LahanWKT leave the stored value untouched.
type FarmerInput struct {
	Nama         string
	NIK          string
	TanggalLahir *time.Time
	NoHP         string
	Alamat       string
	Lokasi       *geometry.Point
	LahanWKT     string // normalized MULTIPOLYGON text
	LuasLahan    *float64
}

// FarmerView is a farmer row with its geometry rendered for display.
type FarmerView struct {
	ID              uint       `gorm:"column:id" json:"id"`
	UserID          uint       `gorm:"column:user_id" json:"-"`
	Nama            string     `gorm:"column:nama" json:"nama"`
	NIK             string     `gorm:"column:nik" json:"nik"`
	TanggalLahir    *time.Time `gorm:"column:tanggal_lahir" json:"tanggal_lahir"`
	NoHP            string     `gorm:"column:no_hp" json:"no_hp"`
	Alamat          string     `gorm:"column:alamat" json:"alamat"`
	LuasLahan       float64    `gorm:"column:luas_lahan" json:"luas_lahan"`
	Latitude        *float64   `gorm:"column:latitude" json:"latitude"`
	Longitude       *float64   `gorm:"column:longitude" json:"longitude"`
	LahanWKT        string     `gorm:"column:lahan_wkt" json:"lahan_wkt"`
	LuasTerhitungM2 float64    `gorm:"column:luas_terhitung_m2" json:"luas_terhitung_m2"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// FarmerOption feeds the farmer selection control on child-record forms.
type FarmerOption struct {
	ID   uint   `gorm:"column:id" json:"id"`
	Nama string `gorm:"column:nama" json:"nama"`
}

// Parcel is one land parcel as GeoJSON.
type Parcel struct {
	ID        uint    `gorm:"column:id"`
	Nama      string  `gorm:"column:nama"`
	LuasLahan float64 `gorm:"column:luas_lahan"`
	GeoJSON   string  `gorm:"column:geojson"`
}

type Summary struct {
	JumlahPetani    int64          `json:"jumlah_petani"`
	TotalLuasLahan  float64        `json:"total_luas_lahan"`
	JumlahKomoditas int64          `json:"jumlah_komoditas"`
	JumlahPanen     int64          `json:"jumlah_panen"`
	TotalPanen      float64        `json:"total_panen"`
	Terbaru         []FarmerOption `json:"terbaru"`
}

type FarmerStore interface {
	Create(ctx context.Context, actor Actor, in FarmerInput) (uint, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]FarmerView, error)
	FindForOwner(ctx context.Context, id, ownerID uint) (*FarmerView, error)
	Update(ctx context.Context, actor Actor, id uint, in FarmerInput) error
	Delete(ctx context.Context, actor Actor, id uint) error
	Options(ctx context.Context, ownerID uint) ([]FarmerOption, error)
	Parcels(ctx context.Context, ownerID uint) ([]Parcel, error)
	Summary(ctx context.Context, ownerID uint) (*Summary, error)
}

// RecordStore inserts commodity and harvest rows.
type RecordStore interface {
	Create(ctx context.Context, actor Actor, table ChildTable, rec ChildRecord) error
}

// classify maps driver errors onto the apperr taxonomy, keeping the original
// in the chain for logging.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, apperr.ErrNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, apperr.ErrValidation):
		return err
	case unavailable(err):
		return fmt.Errorf("%w: %w", apperr.ErrDatabaseUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", apperr.ErrDatabase, err)
	}
}

func unavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

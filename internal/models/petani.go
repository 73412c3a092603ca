package models

import "time"

// Petani is one registered farmer. The spatial columns (lokasi, lahan) are
// added by database.Migrate and only touched through PostGIS functions, so
// they do not appear here.
type Petani struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index;not null" json:"user_id"`
	User         *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Nama         string     `gorm:"size:150;not null" json:"nama"`
	NIK          string     `gorm:"column:nik;size:32;not null" json:"nik"`
	TanggalLahir *time.Time `gorm:"type:date" json:"tanggal_lahir"`
	NoHP         string     `gorm:"column:no_hp;size:32" json:"no_hp"`
	Alamat       string     `gorm:"type:text" json:"alamat"`
	LuasLahan    float64    `gorm:"not null;default:0" json:"luas_lahan"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Petani) TableName() string { return "petani" }

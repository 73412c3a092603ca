package models

import "time"

type Komoditas struct {
	ID            uint      `gorm:"primaryKey"`
	PetaniID      uint      `gorm:"index;not null"`
	Petani        *Petani   `gorm:"constraint:OnDelete:CASCADE"`
	NamaKomoditas string    `gorm:"size:100;not null"`
	LuasTanam     float64   `gorm:"not null"`
	TanggalTanam  time.Time `gorm:"type:date;not null"`
	CreatedAt     time.Time
}

func (Komoditas) TableName() string { return "komoditas" }

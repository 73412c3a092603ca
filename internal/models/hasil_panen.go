package models

import "time"

type HasilPanen struct {
	ID            uint      `gorm:"primaryKey"`
	PetaniID      uint      `gorm:"index;not null"`
	Petani        *Petani   `gorm:"constraint:OnDelete:CASCADE"`
	NamaKomoditas string    `gorm:"size:100;not null"`
	JumlahPanen   float64   `gorm:"not null"`
	TanggalPanen  time.Time `gorm:"type:date;not null"`
	CreatedAt     time.Time
}

func (HasilPanen) TableName() string { return "hasil_panen" }

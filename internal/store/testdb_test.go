package store

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"petani-backend/internal/models"
)

// openSQLite returns an in-memory database with the portable part of the
// schema. Queries that need PostGIS are covered by the integration tests.
func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Petani{},
		&models.Komoditas{},
		&models.HasilPanen{},
		&models.AuditLog{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, PasswordHash: "$2a$04$hash"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedPetani(t *testing.T, db *gorm.DB, owner uint, nama string, luas float64) models.Petani {
	t.Helper()
	lahir := time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC)
	p := models.Petani{
		UserID:       owner,
		Nama:         nama,
		NIK:          "3201010101800001",
		TanggalLahir: &lahir,
		NoHP:         "081234567890",
		Alamat:       "Desa Sukamaju",
		LuasLahan:    luas,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

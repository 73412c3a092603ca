package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"petani-backend/internal/config"
	"petani-backend/internal/models"
)

// Open connects to PostgreSQL and sizes the connection pool. Every request
// borrows from this pool; nothing holds a connection across requests.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	log.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns))
	return db, nil
}

// Ping checks that a pooled connection can reach the server.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate brings the schema up to date. PostGIS columns are managed by hand
// because gorm cannot describe them.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		return fmt.Errorf("postgis extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Petani{},
		&models.Komoditas{},
		&models.HasilPanen{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	stmts := []string{
		"ALTER TABLE petani ADD COLUMN IF NOT EXISTS lokasi geometry(Point, 4326)",
		"ALTER TABLE petani ADD COLUMN IF NOT EXISTS lahan geometry(MultiPolygon, 4326)",
		"ALTER TABLE petani DROP CONSTRAINT IF EXISTS chk_petani_luas_lahan",
		"ALTER TABLE petani ADD CONSTRAINT chk_petani_luas_lahan CHECK (luas_lahan >= 0)",
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("migrate %q: %w", s, err)
		}
	}

	// Older databases stored single polygons; widen them so every row has
	// the same geometry type.
	lahanType, err := lahanGeometryType(db)
	if err != nil {
		return err
	}
	if lahanType == "POLYGON" {
		log.Info("converting petani.lahan from POLYGON to MULTIPOLYGON")
		if err := db.Exec(`ALTER TABLE petani
			ALTER COLUMN lahan TYPE geometry(MultiPolygon, 4326) USING ST_Multi(lahan)`).Error; err != nil {
			return fmt.Errorf("convert lahan: %w", err)
		}
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_petani_lahan ON petani USING GIST (lahan)").Error; err != nil {
		return fmt.Errorf("lahan index: %w", err)
	}

	log.Info("database migration completed")
	return nil
}

// lahanGeometryType reports the declared type of petani.lahan, empty when
// the column is not registered.
func lahanGeometryType(db *gorm.DB) (string, error) {
	var t string
	err := db.Raw(`SELECT type FROM geometry_columns
		WHERE f_table_name = 'petani' AND f_geometry_column = 'lahan'`).Scan(&t).Error
	if err != nil {
		return "", fmt.Errorf("lahan geometry type: %w", err)
	}
	return t, nil
}

package database

import (
	"fmt"
	"strings"

	"github.com/owen-ho/enroot-qr-pairing/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured store. SQLite serializes writers, so its pool is
// capped at one connection and transactions queue behind each other.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	switch strings.ToLower(driver) {
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), cfg)
	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// SQLiteDSN builds a DSN with foreign keys and a busy timeout enabled.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1&_busy_timeout=5000"
}

// Migrate creates or updates the participants and pairings tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Participant{}, &models.Pairing{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

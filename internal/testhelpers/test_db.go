package testhelpers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/owen-ho/enroot-qr-pairing/internal/database"
	"github.com/owen-ho/enroot-qr-pairing/internal/models"

	"gorm.io/gorm"
)

var (
	openSQLite         = func(dsn string) (*gorm.DB, error) { return database.Open(database.DriverSQLite, dsn) }
	migrateSchema      = database.Migrate
	dropParticipantsFn = func(db *gorm.DB) error {
		return db.Migrator().DropTable(&models.Pairing{}, &models.Participant{})
	}
)

var dsnNameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := database.SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnNameReplacer.Replace(t.Name())))
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// DropTables removes both tables to force repository errors.
func DropTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := dropParticipantsFn(db); err != nil {
		panic(fmt.Sprintf("failed to drop tables: %v", err))
	}
}

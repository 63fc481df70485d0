package database

import (
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso / libSQL driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection.
// Local paths use the embedded SQLite driver; libsql:// and wss:// URLs are
// served by the libSQL client through the same SQLite dialect.
func Connect(dsn string) error {
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open opens a database without touching the package-level connection.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func dialector(dsn string) gorm.Dialector {
	if isRemote(dsn) {
		return sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn})
	}
	return sqlite.Open(dsn)
}

func isRemote(dsn string) bool {
	return strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://")
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

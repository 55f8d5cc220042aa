package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// driverName is the database/sql name registered by modernc.org/sqlite (no CGO).
const driverName = "sqlite"

func open(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.New(sqlite.Config{DriverName: driverName, DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// Open creates a GORM *DB backed by the SQLite file at path, creating the
// parent directory when needed.
func Open(path string) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create directory: %w", err)
	}
	return open(clean + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
}

// OpenMemory creates a private in-memory database. The pool is pinned to one
// connection because every new connection would see an empty database.
func OpenMemory() (*gorm.DB, error) {
	gdb, err := open(":memory:")
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

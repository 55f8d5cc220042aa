package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kasuganosora/codepals/config"
	dbmysql "github.com/kasuganosora/codepals/db/mysql"
	dbsqlite "github.com/kasuganosora/codepals/db/sqlite"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
	ModeMemory = "memory"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMemory:
		return dbsqlite.OpenMemory()
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Open connects to MySQL, sizes the pool and checks the server answers.
func Open(dsn string, maxOpen, maxIdle int, maxLife time.Duration) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql: dsn is required")
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:               withParseTime(dsn),
		DefaultStringSize: 191,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLife)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return db, nil
}

// withParseTime turns on parseTime, without which the driver cannot scan
// DATETIME columns into time.Time.
func withParseTime(dsn string) string {
	switch {
	case strings.Contains(dsn, "parseTime="):
		return dsn
	case strings.Contains(dsn, "?"):
		return dsn + "&parseTime=true"
	default:
		return dsn + "?parseTime=true"
	}
}

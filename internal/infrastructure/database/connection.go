// Package database owns the process-wide MySQL handle shared by the serve,
// worker and migrate commands.
package database

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orris-inc/paybridge/internal/shared/biztime"
	"github.com/orris-inc/paybridge/internal/shared/config"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

const slowQuery = 200 * time.Millisecond

var (
	mu sync.RWMutex
	db *gorm.DB
)

// Init opens the connection described by cfg, sizes its pool and pings it.
func Init(cfg *config.DatabaseConfig) error {
	conn, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.GetDSN(),
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: gormlogger.New(queryLog{}, gormlogger.Config{
			SlowThreshold:             slowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:     biztime.NowUTC,
		PrepareStmt: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	mu.Lock()
	db = conn
	mu.Unlock()

	logger.Info("database connection established",
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return nil
}

// Get returns the handle opened by Init, or nil before Init succeeds.
func Get() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	return db
}

// Close releases the pool. It is safe to call when Init never ran.
func Close() error {
	conn := Get()
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// queryLog routes gorm's warn-level output (slow statements and query
// errors) into the application logger.
type queryLog struct{}

func (queryLog) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if strings.Contains(msg, "SLOW SQL") {
		logger.Warn("slow query", "details", msg)
		return
	}
	logger.Error("database error", "details", msg)
}

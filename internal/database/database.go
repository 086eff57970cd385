package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clinicorp/n0-error-tracker/internal/config"
	"github.com/clinicorp/n0-error-tracker/internal/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open builds a gorm handle for the configured driver without touching the
// package-level DB.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite", "sqlite3":
		if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		dialector = gormsqlite.Open(cfg.DBPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.DBDriver == "sqlite" || cfg.DBDriver == "sqlite3" {
		// single writer keeps sqlite from returning SQLITE_BUSY under the sweep
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	slog.Info("database connected", "driver", dialector.Name())
	return db, nil
}

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ErrorReport{},
		&models.StatusHistory{},
		&models.ReportComment{},
		&models.Notification{},
		&models.WebhookEvent{},
		&models.SystemLog{},
	}
}

// Migrate runs AutoMigrate for all service models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

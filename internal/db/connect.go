// Package db opens and migrates the Sitewalk relational database.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mkale/sitewalk/internal/config"
	"github.com/mkale/sitewalk/internal/models"
)

// DSN builds a MySQL DSN from the DB config.
func DSN(cfg config.DBConfig) string {
	auth := cfg.User
	if cfg.Password != "" {
		auth += ":" + cfg.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", auth, cfg.Host, cfg.Port, cfg.Database)
}

// Connect opens a GORM connection using the configured driver.
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch cfg.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", cfg.Path, err)
		}
		return db, nil
	case "mysql":
		db, err := gorm.Open(mysql.Open(DSN(cfg)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unknown driver %q", cfg.Driver)
	}
}

// Migrate runs auto-migration for the full Sitewalk schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Inspector{},
		&models.WorkOrder{},
		&models.ChecklistItem{},
		&models.ChecklistLocation{},
		&models.ChecklistTask{},
		&models.ItemEntry{},
		&models.ItemEntryMedia{},
		&models.ChecklistTaskFinding{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}

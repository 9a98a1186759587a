package db

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"facility-usage-backend/config"
	"facility-usage-backend/internal/model"
)

const sqlitePrefix = "sqlite:"

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{
		Logger:  logger.Default.LogMode(LogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("Running database migrations...")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.EnableTimescale {
		if db.Dialector.Name() != "postgres" {
			log.Warnf("TimescaleDB requested on %s, skipping", db.Dialector.Name())
		} else {
			log.Info("TimescaleDB is enabled, applying TimescaleDB-specific DDL...")
			if err := applyTimescaleDDL(db); err != nil {
				log.WithError(err).Warn("failed to apply some TimescaleDB DDL, continuing without them")
			}
		}
	}

	log.Info("Database initialization complete.")
	return db, nil
}

// Dialector picks the driver from the DSN: "sqlite:<path>" opens SQLite,
// anything else is passed to PostgreSQL.
func Dialector(dsn string) gorm.Dialector {
	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		return sqlite.Open(path)
	}
	return postgres.Open(dsn)
}

// LogLevel maps a config level name to the gorm logger level. Unknown names
// fall back to warn.
func LogLevel(name string) logger.LogLevel {
	switch strings.ToLower(name) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",

		// The primary key already contains observed_at, as hypertables require.
		"SELECT create_hypertable('utilizations', 'observed_at', if_not_exists => TRUE, migrate_data => TRUE);",

		// Latest-before lookups walk one key backwards in time.
		"CREATE INDEX IF NOT EXISTS idx_utilizations_key_observed_at_desc ON utilizations " +
			"(facility_id, capacity_type, usage, observed_at DESC);",

		"CREATE INDEX IF NOT EXISTS idx_facility_status_histories_period ON facility_status_histories " +
			"(facility_id, start_ts);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

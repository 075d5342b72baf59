package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worktime-tracker-backend/config"
	"worktime-tracker-backend/internal/model"
)

// Init opens the database named by cfg.DSN and runs migrations. DSNs that
// look like postgres connection strings use the postgres driver, anything
// else is treated as a sqlite file or URI.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	isPostgres := IsPostgresDSN(cfg.DSN)

	dialector := sqlite.Open(cfg.DSN)
	if isPostgres {
		dialector = postgres.Open(cfg.DSN)
	}

	level := logger.Warn
	if cfg.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	switch {
	case strings.Contains(cfg.DSN, ":memory:"):
		// Every sqlite connection gets its own in-memory database.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Snapshot{},
		&model.NotificationFlag{},
		&model.Setting{},
		&model.DayPreference{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if isPostgres {
		log.Println("Postgres detected, applying postgres-specific DDL...")
		if err := applyPostgresDDL(db); err != nil {
			log.Printf("Warning: failed to apply some postgres DDL: %v. Continuing without them.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// IsPostgresDSN reports whether dsn is a postgres URL or key/value string.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// Flag values are booleans (1) or overtime watermarks in minutes.
		"ALTER TABLE notification_flags DROP CONSTRAINT IF EXISTS notification_flags_value_nonnegative;",
		"ALTER TABLE notification_flags " +
			"ADD CONSTRAINT notification_flags_value_nonnegative CHECK (value >= 0);",

		// The purge runs every cycle and only touches expired rows.
		"CREATE INDEX IF NOT EXISTS idx_notification_flags_expires_at_trigger " +
			"ON notification_flags (expires_at, \"trigger\");",

		"CREATE INDEX IF NOT EXISTS idx_day_preferences_half_day ON day_preferences (date) WHERE half_day;",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

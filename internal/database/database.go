// Package database opens the gorm connection backing the message store.
package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/welldanyogia/icd-messaging-backend/internal/config"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool configuration
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultConnMaxIdleTime = 10 * time.Minute
)

// Options controls how a connection is opened
type Options struct {
	Driver     string
	URL        string
	Production bool
	LogLevel   logger.LogLevel
}

// OptionsFromConfig derives connection options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	level := logger.Warn
	if cfg.SlogLevel() == slog.LevelDebug {
		level = logger.Info
	}
	return Options{
		Driver:     cfg.DatabaseDriver,
		URL:        cfg.DatabaseURL,
		Production: cfg.IsProduction(),
		LogLevel:   level,
	}
}

// Connect opens a database connection for the configured driver
func Connect(opts Options) (*gorm.DB, error) {
	if opts.Production {
		if err := validateSSLMode(opts.URL); err != nil {
			return nil, err
		}
	}

	dialector, err := dialectorFor(opts.Driver, opts.URL)
	if err != nil {
		return nil, err
	}

	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(opts.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configureConnectionPool(db, opts.Driver); err != nil {
		return nil, err
	}

	slog.Info("Connected to database successfully", slog.String("driver", opts.Driver))
	return db, nil
}

func dialectorFor(driver, url string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverPostgres, "":
		return postgres.Open(url), nil
	case config.DriverSQLite:
		return sqlite.Open(url), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// validateSSLMode ensures SSL is enabled in production
func validateSSLMode(databaseURL string) error {
	// Check if sslmode is explicitly disabled
	if strings.Contains(databaseURL, "sslmode=disable") {
		return fmt.Errorf("SSL mode cannot be disabled in production")
	}

	// If no sslmode specified, it's okay (defaults to prefer/require depending on server)
	return nil
}

// configureConnectionPool sets up connection pool limits
func configureConnectionPool(db *gorm.DB, driver string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// SQLite serializes writers; one connection also keeps :memory: databases shared
	if driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		return nil
	}

	sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	return nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Message{},
		&models.MessageDepartment{},
		&models.ReadReceipt{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

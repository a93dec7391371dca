// Package database handles database connections and schema sync.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"usersvc/internal/config"
	"usersvc/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	// DB is the global primary connection.
	DB *gorm.DB
	// ReadDB is the read replica connection, or nil when none is configured.
	ReadDB *gorm.DB
)

func buildDSN(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode,
	)
}

// Connect opens the primary connection (and the read replica when configured),
// syncs the schema and returns the primary gorm DB.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := buildDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	dbInstance, err := open(dsn, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect primary: %w", err)
	}

	middleware.Logger.Info("Database connected successfully")

	if err := ApplySchema(context.Background(), dbInstance, cfg); err != nil {
		return nil, err
	}

	DB = dbInstance

	if cfg.DBReadHost != "" {
		readDB, readErr := connectReplica(cfg)
		if readErr != nil {
			middleware.Logger.Warn("Read replica unavailable, using primary for reads",
				slog.String("error", readErr.Error()))
		} else {
			ReadDB = readDB
		}
	}

	return DB, nil
}

func connectReplica(cfg *config.Config) (*gorm.DB, error) {
	port := cfg.DBReadPort
	if port == "" {
		port = cfg.DBPort
	}
	user := cfg.DBReadUser
	if user == "" {
		user = cfg.DBUser
	}
	password := cfg.DBReadPassword
	if password == "" {
		password = cfg.DBPassword
	}

	dsn := buildDSN(cfg.DBReadHost, port, user, password, cfg.DBName, cfg.DBSSLMode)
	readDB, err := open(dsn, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect read replica: %w", err)
	}
	middleware.Logger.Info("Read replica connected", slog.String("host", cfg.DBReadHost))
	return readDB, nil
}

func open(dsn string, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(middleware.Logger),
	})
	if err != nil {
		return nil, err
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

// GetReadDB returns the replica when connected, otherwise the primary.
func GetReadDB() *gorm.DB {
	if ReadDB != nil {
		return ReadDB
	}
	return DB
}

// Close closes every open connection.
func Close() error {
	var errs []error
	for _, db := range []*gorm.DB{ReadDB, DB} {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	DB, ReadDB = nil, nil
	return errors.Join(errs...)
}

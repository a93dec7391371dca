package database

import (
	"context"
	"fmt"
	"log/slog"

	"usersvc/internal/config"
	"usersvc/internal/middleware"

	"gorm.io/gorm"
)

// ApplySchema syncs tables and indexes with the persistent models through AutoMigrate.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	middleware.Logger.InfoContext(ctx, "Running GORM AutoMigrate", slog.String("env", cfg.Env))
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "Database schema synced")
	return nil
}

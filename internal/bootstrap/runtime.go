// Package bootstrap wires the runtime dependencies shared by the server and
// the command line tools.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"usersvc/internal/auth"
	"usersvc/internal/cache"
	"usersvc/internal/config"
	"usersvc/internal/database"
	"usersvc/internal/models"
	"usersvc/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	defaultRootEmail    = "root@usersvc.local"
	defaultRootUsername = "usersvc_root"
)

// Options control runtime initialization behavior.
type Options struct {
	// DemoUsers seeds that many random accounts on an empty database.
	DemoUsers int
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if err := seedDemoUsers(db, opts.DemoUsers); err != nil {
		return nil, nil, fmt.Errorf("failed to seed demo users: %w", err)
	}

	return db, r, nil
}

func seedDemoUsers(db *gorm.DB, n int) error {
	if n <= 0 {
		return nil
	}
	var existing int64
	if err := db.Model(&models.User{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 1 {
		return nil
	}
	_, err := seed.NewSeeder(db, seed.Options{NumUsers: n, FollowsPerUser: 3}).Seed()
	return err
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = defaultRootUsername
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = defaultRootEmail
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("email = ?", email).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username: username,
				Email:    email,
				Password: hashedPassword,
				IsPublic: true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
			return tx.Model(&root).Update("admin", true).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&root).Updates(map[string]any{
				"admin":    true,
				"blocked":  false,
				"password": hashedPassword,
			}).Error
		}
	}); err != nil {
		return err
	}

	log.Printf("development root admin bootstrap ensured for %s", email)
	return nil
}

// Package bootstrap wires the runtime dependencies shared by the cmd binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/seed"
	"inkwell/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCategories inserts the default category set when none exist.
	SeedCategories bool
}

// InitRuntime connects to DB and Redis, bootstraps the development admin and
// optionally seeds the default categories. The Redis client is nil when Redis
// is not reachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if err := EnsureDevAdmin(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedCategories {
		if err := seed.Categories(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed default categories: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin creates, or promotes, the configured development admin.
// It only acts in development with DEV_BOOTSTRAP_ADMIN enabled.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@inkwell.local"
	}
	password := cfg.DevAdminPassword
	if password == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	hashed, err := service.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		findErr := tx.Where("email = ?", email).First(&existing).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin := models.User{
				Username: username,
				Email:    email,
				Password: hashed,
				Role:     models.RoleAdmin,
				IsActive: true,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
			middleware.Logger.Info("Development admin created", slog.String("email", email))
			return nil
		case findErr != nil:
			return findErr
		}

		if existing.IsAdmin() && existing.IsActive {
			return nil
		}
		middleware.Logger.Info("Development admin restored", slog.String("email", email))
		return tx.Model(&models.User{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{"role": models.RoleAdmin, "is_active": true}).Error
	})
}

package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is the outcome of DB_SCHEMA_MODE for one driver and environment.
type SchemaPlan struct {
	Mode    string
	SQL     bool
	Auto    bool
	Driver  string
	EnvName string
}

// SchemaStatus is a SchemaPlan plus the SQL migration log, when SQL
// migrations are part of the plan.
type SchemaStatus struct {
	SchemaPlan
	Applied []MigrationLog
	Pending []Migration
}

var protectedEnvs = map[string]bool{"production": true, "prod": true, "staging": true, "stage": true}

// PlanSchema resolves DB_SCHEMA_MODE. The SQL scripts are written for
// PostgreSQL, so SQLite databases are always built with AutoMigrate.
// AutoMigrate never runs against production or staging PostgreSQL.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode:    strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Driver:  cfg.DBDriver,
		EnvName: cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}
	if plan.Mode != SchemaModeHybrid && plan.Mode != SchemaModeSQL && plan.Mode != SchemaModeAuto {
		return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}

	if cfg.DBDriver == "sqlite" {
		plan.Auto = true
		return plan, nil
	}

	protected := protectedEnvs[strings.ToLower(strings.TrimSpace(cfg.Env))]
	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeAuto:
		if protected {
			return SchemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q; use sql or hybrid", cfg.Env)
		}
		plan.Auto = true
	case SchemaModeHybrid:
		plan.SQL = true
		plan.Auto = !protected
	}
	return plan, nil
}

// ApplySchema carries out the plan: SQL migrations first, then AutoMigrate
// over PersistentModels.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.Auto {
		middleware.Logger.Info("Auto-migrating models",
			slog.String("mode", plan.Mode),
			slog.String("driver", plan.Driver),
			slog.Int("models", len(PersistentModels())),
		)
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan and, for SQL plans, the applied and
// pending migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.SQL {
		return status, nil
	}

	m := NewMigrator(db, migrations)
	if status.Applied, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}

package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"inkwell/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one applied migration. Checksum is the SHA-256 of the up
// script at the time it ran.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null;default:''"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Checksum fingerprints the up script.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// Migrator applies a fixed, version-ordered set of migrations and keeps the
// migration_logs table in step with it.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator for the given migrations.
func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, migrations: sorted}
}

func (m *Migrator) ensureLogTable(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	if db.Migrator().HasTable(&MigrationLog{}) {
		if !db.Migrator().HasColumn(&MigrationLog{}, "Checksum") {
			return db.Migrator().AddColumn(&MigrationLog{}, "Checksum")
		}
		return nil
	}
	return db.Migrator().CreateTable(&MigrationLog{})
}

// Applied returns the migration log in version order. A database without the
// log table has applied nothing.
func (m *Migrator) Applied(ctx context.Context) ([]MigrationLog, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&MigrationLog{}) {
		return []MigrationLog{}, nil
	}
	var logs []MigrationLog
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to read migration log: %w", err)
	}
	return logs, nil
}

// Pending returns the registered migrations not yet in the log.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]struct{}, len(applied))
	for _, l := range applied {
		done[l.Version] = struct{}{}
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; !ok {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Verify compares the log with the registered migrations. It fails when the
// database has seen a version this build does not know, or when an applied
// script has since been edited.
func (m *Migrator) Verify(applied []MigrationLog) error {
	known := make(map[int]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = mig
	}

	var unknown, drifted []string
	for _, l := range applied {
		mig, ok := known[l.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d", l.Version))
		case l.Checksum != "" && l.Checksum != mig.Checksum():
			drifted = append(drifted, mig.String())
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("migration_logs contains unknown versions not present in code: %s", strings.Join(unknown, ", "))
	}
	if len(drifted) > 0 {
		return fmt.Errorf("applied migrations were modified after they ran: %s", strings.Join(drifted, ", "))
	}
	return nil
}

// Up applies every pending migration in order and returns how many ran. Each
// script runs in the same transaction as its log row, so a failing script
// leaves nothing behind.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLogTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure migration logs table: %w", err)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.Verify(applied); err != nil {
		return 0, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		middleware.Logger.Info("Applying migration", slog.Int("version", mig.Version), slog.String("name", mig.Name))
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mig.String(), err)
			}
			entry := MigrationLog{Version: mig.Version, Name: mig.Name, Checksum: mig.Checksum()}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mig.String(), err)
			}
			return nil
		})
		if err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			target = &m.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, l := range applied {
		if l.Version == version {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.Int("version", version), slog.String("name", target.Name))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %s: %w", target.String(), err)
		}
		if err := tx.Where("version = ?", version).Delete(&MigrationLog{}).Error; err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", version, err)
		}
		return nil
	})
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	n, err := NewMigrator(db, migrations).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("SQL migrations up to date", slog.Int("applied", n))
	return nil
}

// RollbackMigration reverts one embedded migration by version number.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db, migrations).Down(ctx, version)
}

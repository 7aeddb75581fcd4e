// Command migrate manages the Inkwell database schema.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const usage = `usage: migrate <command> [version]

  up        apply pending SQL migrations
  auto      run AutoMigrate over the models
  status    show the schema plan and migration log
  list      list the embedded migrations
  down N    roll back migration N`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	cmd := strings.ToLower(strings.TrimSpace(os.Args[1]))
	if cmd == "list" {
		listMigrations(os.Stdout, database.GetMigrations())
		return
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := run(context.Background(), db, cfg, cmd, os.Args[2:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func listMigrations(out io.Writer, all []database.Migration) {
	for i := range all {
		fmt.Fprintln(out, all[i].String())
	}
}

func run(ctx context.Context, db *gorm.DB, cfg *config.Config, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		fmt.Fprintln(out, "sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Fprintln(out, "models auto-migrated")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		printStatus(out, status)
	case "down":
		if len(args) < 1 {
			return fmt.Errorf("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(out, "rolled back migration %d\n", version)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}

func printStatus(out io.Writer, status *database.SchemaStatus) {
	fmt.Fprintf(out, "mode=%s env=%s driver=%s sql=%t auto=%t\n",
		status.Mode, status.EnvName, status.Driver, status.SQL, status.Auto)
	for _, l := range status.Applied {
		fmt.Fprintf(out, "applied  %06d_%s  %s\n", l.Version, l.Name, l.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for i := range status.Pending {
		fmt.Fprintf(out, "pending  %s\n", status.Pending[i].String())
	}
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	embedded := flag.Bool("embedded", false, "use the migrations compiled into the binary instead of -dir")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")

	flag.Parse()

	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"cmd":      *cmd,
		"dir":      *dir,
		"embedded": *embedded,
	})

	if cfg.DB.IsSQLite() {
		fmt.Fprintln(os.Stderr, "sql migrations target postgres; sqlite schemas are created by dev auto-migrate")
		os.Exit(1)
	}

	sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
	requireResource(ctx, logg, "database", err)
	defer sqlDB.Close()
	requireResource(ctx, logg, "database ping", sqlDB.PingContext(ctx))

	fsys, err := migrate.Source(*dir, *embedded)
	requireResource(ctx, logg, "migration source", err)
	logg.Info(ctx, "migrate ready")

	if err := runCommand(ctx, sqlDB, fsys, *cmd, *version); err != nil {
		fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, db *sql.DB, fsys fs.FS, cmd, version string) error {
	switch cmd {
	case "up":
		return migrate.Up(ctx, db, fsys)
	case "down":
		return migrate.Down(ctx, db, fsys)
	case "status":
		statuses, err := migrate.Status(ctx, db, fsys)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "pending"
			if st.State == goose.StateApplied {
				applied = st.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-14d %-40s %s\n", st.Source.Version, filepath.Base(st.Source.Path), applied)
		}
		return nil
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version")
		}
		return migrate.MigrateToVersion(ctx, db, fsys, version)
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

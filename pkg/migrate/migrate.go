package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where cmd/migrate looks for SQL files when run from the repo root.
const DefaultDir = "pkg/migrate/migrations"

// Source picks the migration files: the copy compiled into the binary, or a
// directory on disk.
func Source(dir string, embedded bool) (fs.FS, error) {
	if embedded {
		return fs.Sub(Migrations, embeddedDir)
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	return os.DirFS(dir), nil
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	if _, err := provider.Down(ctx); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status lists each migration with whether it has been applied.
func Status(ctx context.Context, db *sql.DB, fsys fs.FS) ([]*goose.MigrationStatus, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}
	return provider.Status(ctx)
}

// MigrateToVersion moves the schema up or down until it sits at target
// (a YYYYMMDDHHMMSS version).
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < version:
		_, err = provider.UpTo(ctx, version)
	case current > version:
		_, err = provider.DownTo(ctx, version)
	}
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

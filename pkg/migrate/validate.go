package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir runs ValidateFS over a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks what goose would only report at apply time: file naming,
// unique versions, both direction markers and balanced statement blocks.
func ValidateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return err
	}
	versions := make(map[string]string, len(names))
	for _, name := range names {
		m := migrationName.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, dup := versions[m[1]]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkMigration(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func checkMigration(body string) error {
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(body, marker) {
			return fmt.Errorf("missing %q", marker)
		}
	}
	open := false
	for _, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			if open {
				return errors.New("nested StatementBegin")
			}
			open = true
		case "-- +goose StatementEnd":
			if !open {
				return errors.New("StatementEnd without StatementBegin")
			}
			open = false
		}
	}
	if open {
		return errors.New("unterminated StatementBegin")
	}
	return nil
}

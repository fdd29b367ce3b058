package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pressly/goose/v3"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSQLMigration scaffolds <dir>/<YYYYMMDDHHMMSS>_<name>.sql through
// goose and returns the new file's path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	before, err := filepath.Glob(filepath.Join(dir, "*_"+slug+".sql"))
	if err != nil {
		return "", err
	}
	if len(before) > 0 {
		return "", fmt.Errorf("migration %q already exists: %s", slug, before[0])
	}
	if err := goose.Create(nil, dir, slug, "sql"); err != nil {
		return "", fmt.Errorf("goose create: %w", err)
	}
	created, err := filepath.Glob(filepath.Join(dir, "*_"+slug+".sql"))
	if err != nil || len(created) != 1 {
		return "", fmt.Errorf("locate created migration %q: %v", slug, err)
	}
	return created[0], nil
}

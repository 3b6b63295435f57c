package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

// CreateSQLMigration writes one empty goose migration per dialect, all sharing a version:
//
//	<dir>/<dialect>/<YYYYMMDDHHMMSS>_<name>.sql
func CreateSQLMigration(dir string, name string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	safe := sanitizeName(name)
	if safe == "" {
		return nil, fmt.Errorf("name %q results in empty sanitized filename", name)
	}

	version := time.Now().UTC().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", version, safe)

	paths := make([]string, 0, len(Dialects))
	for _, dialect := range Dialects {
		target := DialectDir(dir, dialect)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", target, err)
		}
		fullpath := filepath.Join(target, filename)
		if _, err := os.Stat(fullpath); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", fullpath)
		}
		if err := os.WriteFile(fullpath, []byte(migrationTemplate(safe, dialect)), 0o644); err != nil {
			return nil, fmt.Errorf("write migration %q: %w", fullpath, err)
		}
		paths = append(paths, fullpath)
	}
	return paths, nil
}

func sanitizeName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = strings.ReplaceAll(safe, " ", "_")
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}

func migrationTemplate(name, dialect string) string {
	return fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %s (%s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %s
-- +goose StatementEnd
`, name, dialect, name)
}

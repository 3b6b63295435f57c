package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// ValidateDir checks filenames and goose headers in every dialect directory and that
// each dialect carries the same set of migration files.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	var reference []string
	for i, dialect := range Dialects {
		names, err := validateDialectDir(DialectDir(dir, dialect))
		if err != nil {
			return err
		}
		if i == 0 {
			reference = names
			continue
		}
		if strings.Join(names, ",") != strings.Join(reference, ",") {
			return fmt.Errorf("%s migrations %v do not match %s migrations %v", dialect, names, Dialects[0], reference)
		}
	}
	return nil
}

func validateDialectDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename
	var names []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", full, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Up\"", full)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return nil, fmt.Errorf("migration %q missing \"-- +goose Down\"", full)
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// CreateSQLMigration writes an empty goose migration into dir and returns its
// path. The version is the current UTC timestamp, bumped past the newest
// existing version so two migrations made in the same second still sort.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return "", err
	}
	version, _ := strconv.ParseInt(time.Now().UTC().Format(versionLayout), 10, 64)
	if n := len(existing); n > 0 && existing[n-1].Version >= version {
		version = existing[n-1].Version + 1
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	body := fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s: forward change
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- %[1]s: undo the forward change
-- +goose StatementEnd
`, slug)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, f.Close()
}

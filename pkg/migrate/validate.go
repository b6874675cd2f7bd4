package migrate

import (
	"cmp"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var migrationNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// Migration is one goose SQL file as named on disk.
type Migration struct {
	Version int64
	Name    string
	File    string
}

// List returns the SQL migrations in fsys ordered by version. Non-SQL files
// are ignored; a malformed SQL filename is an error.
func List(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := migrationNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("migration %q must be named YYYYMMDDHHMMSS_snake_name.sql", e.Name())
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		out = append(out, Migration{Version: version, Name: m[2], File: e.Name()})
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// Validate checks filenames, version uniqueness and the goose annotations of
// every migration in fsys.
func Validate(fsys fs.FS) error {
	migrations, err := List(fsys)
	if err != nil {
		return err
	}
	for i, m := range migrations {
		if i > 0 && migrations[i-1].Version == m.Version {
			return fmt.Errorf("version %d used by both %q and %q", m.Version, migrations[i-1].File, m.File)
		}
		body, err := fs.ReadFile(fsys, m.File)
		if err != nil {
			return fmt.Errorf("read %q: %w", m.File, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", m.File, err)
		}
	}
	return nil
}

func checkAnnotations(sql string) error {
	up := strings.Index(sql, "-- +goose Up")
	down := strings.Index(sql, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf(`missing "-- +goose Up"`)
	case down < 0:
		return fmt.Errorf(`missing "-- +goose Down"`)
	case down < up:
		return fmt.Errorf("down section precedes up section")
	}
	begins := strings.Count(sql, "-- +goose StatementBegin")
	ends := strings.Count(sql, "-- +goose StatementEnd")
	if begins != ends {
		return fmt.Errorf("%d StatementBegin vs %d StatementEnd", begins, ends)
	}
	return nil
}

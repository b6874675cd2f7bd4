package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are authored; the same files are
// compiled into every binary.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Bundled returns the migrations compiled into the binary.
func Bundled() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source picks the bundled migrations unless dir points at a checkout.
func Source(dir string) fs.FS {
	if dir == "" {
		return Bundled()
	}
	return os.DirFS(dir)
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	// goose files are PostgreSQL only; SQLite uses AutoMigrate
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return p, nil
}

// Up applies every pending migration and reports each one to out.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS, out io.Writer) error {
	p, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	results, err := p.Up(ctx)
	report(out, results)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, db *sql.DB, fsys fs.FS, out io.Writer) error {
	p, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	result, err := p.Down(ctx)
	if result != nil {
		report(out, []*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status prints one line per known migration.
func Status(ctx context.Context, db *sql.DB, fsys fs.FS, out io.Writer) error {
	p, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	statuses, err := p.Status(ctx)
	if err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	for _, s := range statuses {
		applied := "pending"
		if s.State == goose.StateApplied {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%-20s %-14d %s\n", applied, s.Source.Version, path.Base(s.Source.Path))
	}
	return nil
}

// To moves the schema up or down until target is the newest applied version.
func To(ctx context.Context, db *sql.DB, fsys fs.FS, target int64, out io.Writer) error {
	p, err := newProvider(db, fsys)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current == target:
		fmt.Fprintf(out, "already at version %d\n", target)
		return nil
	case current < target:
		results, err = p.UpTo(ctx, target)
	default:
		results, err = p.DownTo(ctx, target)
	}
	report(out, results)
	if err != nil {
		return fmt.Errorf("migrate from %d to %d: %w", current, target, err)
	}
	return nil
}

func report(out io.Writer, results []*goose.MigrationResult) {
	if out == nil {
		return
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(out, "%-4s %s (%s)\n", r.Direction, path.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
	}
}

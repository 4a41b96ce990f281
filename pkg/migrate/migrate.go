// Package migrate applies the goose SQL migrations for the relational store.
// The migration files are compiled into the binary; a directory on disk can
// be used instead when authoring new ones.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are created, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the embedded migrations when dir is empty, else dir on disk.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(embedded, "migrations")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Migrator runs goose commands against one database.
type Migrator struct {
	provider *goose.Provider
	out      io.Writer
}

// New builds a postgres migrator over the migrations in dir (see Source).
// Results are reported to out; nil discards them.
func New(db *sql.DB, dir string, out io.Writer) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	fsys, err := Source(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Migrator{provider: provider, out: out}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.report(results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration only.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.report(result)
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, st := range statuses {
		applied := "pending"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(m.out, "%-14d %-20s %s\n", st.Source.Version, applied, st.Source.Path)
	}
	return nil
}

// ToVersion migrates up or down until the database is at target
// (YYYYMMDDHHMMSS).
func (m *Migrator) ToVersion(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	default:
		results, err = m.provider.DownTo(ctx, version)
	}
	m.report(results...)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

func (m *Migrator) report(results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(m.out, "%s %d %s (%s)\n", r.Direction, r.Source.Version, r.Source.Path, r.Duration)
	}
}

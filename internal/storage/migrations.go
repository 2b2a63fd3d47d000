package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrationFiles embed.FS

func migrationsFor(dir string) (fs.FS, error) {
	sub, err := fs.Sub(migrationFiles, "migrations/"+dir)
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", dir, err)
	}
	return sub, nil
}

// runMigrations is a seam for testing the goose provider.
var runMigrations = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) ([]*goose.MigrationResult, error) {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, err
	}
	return p.Up(ctx)
}

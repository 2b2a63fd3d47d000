package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type sqliteDialect struct {
	questionRebind
}

func (sqliteDialect) engine() config.Engine { return config.EngineSQLite }

func (sqliteDialect) open(cfg *config.Config) (*sql.DB, error) {
	if cfg.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o750); err != nil {
			return nil, fmt.Errorf("create parent dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Database)
	if err != nil {
		return nil, err
	}
	// One connection: operations on a handle are serialized, the file lock
	// is held by a single connection, and VACUUM needs no other readers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func (sqliteDialect) goose() (goose.Dialect, fs.FS, error) {
	fsys, err := migrationsFor("sqlite")
	return goose.DialectSQLite3, fsys, err
}

func (sqliteDialect) insert(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error) {
	return dbx.ExecLastInsertID(ctx, db, query, args...)
}

func (sqliteDialect) compact(ctx context.Context, db dbx.DBTX) error {
	_, err := db.ExecContext(ctx, "VACUUM")
	return err
}

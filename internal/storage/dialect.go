package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/pressly/goose/v3"
)

// dialect is one engine variant. The set is closed: sqliteDialect,
// mysqlDialect and postgresDialect. A Store picks its dialect once in Open.
type dialect interface {
	engine() config.Engine

	// open returns a pool for cfg without contacting the engine.
	open(cfg *config.Config) (*sql.DB, error)

	// goose returns the migration dialect and the embedded migration set.
	goose() (goose.Dialect, fs.FS, error)

	// rebind rewrites '?' placeholders of a constant statement template
	// into the engine's placeholder syntax.
	rebind(query string) string

	// insert runs an INSERT statement and returns the assigned id.
	insert(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error)

	// compact reclaims space after a delete. No-op where the engine
	// manages free space itself.
	compact(ctx context.Context, db dbx.DBTX) error
}

func dialectFor(e config.Engine) (dialect, error) {
	switch e {
	case config.EngineSQLite:
		return sqliteDialect{}, nil
	case config.EngineMySQL:
		return mysqlDialect{}, nil
	case config.EnginePostgres:
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("%w: unsupported engine %q", config.ErrConfiguration, e)
}

// questionRebind keeps '?' placeholders as they are.
type questionRebind struct{}

func (questionRebind) rebind(query string) string { return dbx.Rebind(dbx.Question, query) }

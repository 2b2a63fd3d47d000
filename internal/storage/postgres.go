package storage

import (
	"context"
	"database/sql"
	"io/fs"
	"net"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type postgresDialect struct{}

func (postgresDialect) engine() config.Engine { return config.EnginePostgres }

func (postgresDialect) open(cfg *config.Config) (*sql.DB, error) {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	cc, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cc), nil
}

func (postgresDialect) goose() (goose.Dialect, fs.FS, error) {
	fsys, err := migrationsFor("postgres")
	return goose.DialectPostgres, fsys, err
}

func (postgresDialect) rebind(query string) string { return dbx.Rebind(dbx.Dollar, query) }

// insert appends RETURNING id; the pgx driver does not report LastInsertId.
func (postgresDialect) insert(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error) {
	return dbx.QueryReturningID(ctx, db, query+" RETURNING id", args...)
}

func (postgresDialect) compact(context.Context, dbx.DBTX) error { return nil }

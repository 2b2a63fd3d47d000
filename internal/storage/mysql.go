package storage

import (
	"context"
	"database/sql"
	"io/fs"
	"net"
	"strconv"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
)

type mysqlDialect struct {
	questionRebind
}

func (mysqlDialect) engine() config.Engine { return config.EngineMySQL }

func (mysqlDialect) open(cfg *config.Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (mysqlDialect) goose() (goose.Dialect, fs.FS, error) {
	fsys, err := migrationsFor("mysql")
	return goose.DialectMySQL, fsys, err
}

func (mysqlDialect) insert(ctx context.Context, db dbx.DBTX, query string, args ...any) (int64, error) {
	return dbx.ExecLastInsertID(ctx, db, query, args...)
}

func (mysqlDialect) compact(context.Context, dbx.DBTX) error { return nil }

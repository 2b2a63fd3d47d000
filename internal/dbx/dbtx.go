// Package dbx provides tiny DB abstractions shared by the storage dialects:
// a minimal interface implemented by both *sql.DB and *sql.Tx, placeholder
// rebinding for constant statement templates, and id read-back.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// DBTX is the subset of database/sql used by the storage layer.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// Placeholder is a bind parameter syntax.
type Placeholder int

const (
	// Question is "?", used by SQLite and MySQL.
	Question Placeholder = iota
	// Dollar is "$1, $2, ...", used by PostgreSQL.
	Dollar
)

// Rebind rewrites the '?' placeholders of query into style p. Templates
// must not contain '?' inside string literals.
func Rebind(p Placeholder, query string) string {
	if p != Dollar {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// ExecLastInsertID runs an INSERT and returns the id reported by the driver
// through sql.Result.
func ExecLastInsertID(ctx context.Context, db DBTX, query string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// QueryReturningID runs an INSERT ... RETURNING id and scans the id.
func QueryReturningID(ctx context.Context, db DBTX, query string, args ...any) (int64, error) {
	var id int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

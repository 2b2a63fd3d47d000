// Package storage is the database access layer: it keeps files as BLOBs in
// a single `files` table on one of several interchangeable engines.
//
// # Overview
//
// A Store is a handle bound to one engine, chosen once from config.Engine
// when the handle is opened:
//
//   - sqlite: embedded, single file (modernc.org/sqlite); deletes are
//     followed by VACUUM so the file shrinks.
//   - mysql: client/server (github.com/go-sql-driver/mysql).
//   - postgres: client/server (github.com/jackc/pgx/v5/stdlib).
//
// Engine differences are limited to connection setup, column types in the
// embedded goose migrations, placeholder syntax, how the new id is read
// back, and compaction. Every statement is a constant template; caller
// values are always bound as parameters.
//
// # Lifecycle
//
//	s, err := storage.Open(ctx, cfg, storage.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//	id, err := s.InsertFile(ctx, "a.txt", "text/plain", int64(len(b)), b, cryptox.SHA256Hex(b))
//
// A Store expects at most one operation in flight; callers that share a
// handle between goroutines serialize access themselves.
//
// # Errors
//
// Failures wrap one of ErrConnection, ErrSchema, ErrWrite, ErrNotFound, or
// config.ErrConfiguration for an unknown engine. Nothing is retried.
package storage

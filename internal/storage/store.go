package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/cryptox"
	"github.com/dmitrijs2005/blobvault/internal/logging"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for lifecycle and write events.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithDigestCheck makes InsertFile recompute the payload size and digest
// and reject records whose metadata does not match with cryptox.ErrIntegrity.
func WithDigestCheck() Option {
	return func(s *Store) { s.checkDigest = true }
}

// Store is a handle on the files table of one engine.
type Store struct {
	db          *sql.DB
	dialect     dialect
	q           queries
	log         logging.Logger
	checkDigest bool

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

type queries struct {
	insert    string
	list      string
	byID      string
	forExport string
	last      string
	delete    string
	count     string
}

func newQueries(d dialect) queries {
	return queries{
		insert:    d.rebind(`INSERT INTO files (filename, mime_type, file_size, file_data, sha256) VALUES (?, ?, ?, ?, ?)`),
		list:      `SELECT id, filename, mime_type, file_size, sha256 FROM files ORDER BY id ASC`,
		byID:      d.rebind(`SELECT id, filename, mime_type, file_size, file_data, sha256 FROM files WHERE id = ?`),
		forExport: d.rebind(`SELECT filename, file_data, sha256 FROM files WHERE id = ?`),
		last:      `SELECT id, filename, mime_type, file_size, file_data, sha256 FROM files ORDER BY id DESC LIMIT 1`,
		delete:    d.rebind(`DELETE FROM files WHERE id = ?`),
		count:     `SELECT COUNT(*) FROM files`,
	}
}

func newStore(db *sql.DB, d dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		q:       newQueries(d),
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("engine", string(d.engine()))
	return s
}

// Open connects to the engine selected by cfg. An unknown engine fails
// with config.ErrConfiguration before any connection is attempted; an
// unreachable or rejecting engine fails with ErrConnection. The sqlite
// backing file and its directory are created when absent.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrConfiguration)
	}
	d, err := dialectFor(cfg.Engine)
	if err != nil {
		return nil, err
	}

	db, err := d.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnection, cfg, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrConnection, cfg, err)
	}

	s := newStore(db, d, opts...)
	s.log.Info(ctx, "storage opened", "config", cfg)
	return s, nil
}

// Engine reports the engine the handle is bound to.
func (s *Store) Engine() config.Engine {
	return s.dialect.engine()
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return fmt.Errorf("%w: store is closed", ErrConnection)
	}
	return nil
}

// EnsureSchema creates the files table if it does not exist. It is safe to
// call on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	gd, fsys, err := s.dialect.goose()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	results, err := runMigrations(ctx, gd, s.db, fsys)
	if err != nil {
		return fmt.Errorf("%w: ensure files table: %w", ErrSchema, err)
	}

	s.log.Debug(ctx, "schema ensured", "applied", len(results))
	return nil
}

// Ping checks that the engine is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrConnection, err)
	}
	return nil
}

// InsertFile stores one record and returns its new id. size and digest are
// stored as given unless the store was opened WithDigestCheck.
func (s *Store) InsertFile(ctx context.Context, filename, mimeType string, size int64, data []byte, digest string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if filename == "" {
		return 0, fmt.Errorf("%w: filename is empty", ErrWrite)
	}
	if mimeType == "" {
		return 0, fmt.Errorf("%w: mime type is empty", ErrWrite)
	}
	if s.checkDigest {
		if size != int64(len(data)) {
			return 0, fmt.Errorf("%w: file_size %d does not match payload length %d", cryptox.ErrIntegrity, size, len(data))
		}
		if err := cryptox.Verify(digest, data); err != nil {
			return 0, err
		}
	}
	if data == nil {
		// NOT NULL column: bind an empty BLOB, not NULL.
		data = []byte{}
	}

	id, err := s.dialect.insert(ctx, s.db, s.q.insert, filename, mimeType, size, data, digest)
	if err != nil {
		return 0, fmt.Errorf("%w: insert %s: %w", ErrWrite, filename, err)
	}

	s.log.Info(ctx, "file inserted", "id", id, "filename", filename, "size", size)
	return id, nil
}

// GetAllFiles lists metadata of every record ordered by id. Payloads are
// not read.
func (s *Store) GetAllFiles(ctx context.Context) ([]models.FileInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.q.list)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %w", ErrConnection, err)
	}
	defer rows.Close()

	result := make([]models.FileInfo, 0)
	for rows.Next() {
		var f models.FileInfo
		if err := rows.Scan(&f.ID, &f.Filename, &f.MimeType, &f.Size, &f.SHA256); err != nil {
			return nil, fmt.Errorf("%w: scan file row: %w", ErrConnection, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate file rows: %w", ErrConnection, err)
	}

	return result, nil
}

// GetFileByID loads one record with its payload.
func (s *Store) GetFileByID(ctx context.Context, id int64) (*models.File, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	f, err := scanFile(s.db.QueryRowContext(ctx, s.q.byID, id))
	if err != nil {
		return nil, wrapRead(err, fmt.Sprintf("file %d", id))
	}
	return f, nil
}

// GetLastFile loads the record with the highest id.
func (s *Store) GetLastFile(ctx context.Context) (*models.File, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	f, err := scanFile(s.db.QueryRowContext(ctx, s.q.last))
	if err != nil {
		return nil, wrapRead(err, "last file")
	}
	return f, nil
}

// GetFileForExport loads the payload, the original filename and the
// stored digest.
func (s *Store) GetFileForExport(ctx context.Context, id int64) (*models.ExportFile, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	e := &models.ExportFile{}
	err := s.db.QueryRowContext(ctx, s.q.forExport, id).Scan(&e.Filename, &e.Data, &e.SHA256)
	if err != nil {
		return nil, wrapRead(err, fmt.Sprintf("file %d", id))
	}
	if e.Data == nil {
		e.Data = []byte{}
	}
	return e, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, s.q.count).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count files: %w", ErrConnection, err)
	}
	return n, nil
}

// DeleteFile removes a record. On sqlite the database file is compacted
// afterwards; this rewrites the whole file and is not interrupted by ctx
// cancellation once started.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.q.delete, id)
	if err != nil {
		return fmt.Errorf("%w: delete file %d: %w", ErrWrite, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete file %d: rows affected: %w", ErrWrite, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: file %d", ErrNotFound, id)
	}

	s.log.Info(ctx, "file deleted", "id", id)
	return s.compact(ctx)
}

// Vacuum compacts the database explicitly. No-op on client/server engines.
func (s *Store) Vacuum(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.compact(ctx)
}

func (s *Store) compact(ctx context.Context) error {
	if !s.dialect.engine().Embedded() {
		return nil
	}
	start := time.Now()
	if err := s.dialect.compact(context.WithoutCancel(ctx), s.db); err != nil {
		return fmt.Errorf("%w: compact: %w", ErrWrite, err)
	}
	s.log.Info(ctx, "database compacted", "took", time.Since(start))
	return nil
}

// Close releases the connection pool. Calling it again is a no-op.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func scanFile(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	if err := row.Scan(&f.ID, &f.Filename, &f.MimeType, &f.Size, &f.Data, &f.SHA256); err != nil {
		return nil, err
	}
	if f.Data == nil {
		f.Data = []byte{}
	}
	return f, nil
}

func wrapRead(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: read %s: %w", ErrConnection, what, err)
}

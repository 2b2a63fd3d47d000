package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/cryptox"
	"github.com/dmitrijs2005/blobvault/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Engine:   config.EngineSQLite,
		Database: filepath.Join(t.TempDir(), "nested", "files.db"),
	}
}

func openSQLite(t *testing.T, opts ...Option) (*Store, *config.Config) {
	t.Helper()
	cfg := sqliteConfig(t)
	s, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s, cfg
}

func insertBytes(t *testing.T, s *Store, name, mime string, data []byte) int64 {
	t.Helper()
	id, err := s.InsertFile(context.Background(), name, mime, int64(len(data)), data, cryptox.SHA256Hex(data))
	require.NoError(t, err)
	return id
}

func TestOpen_SQLiteCreatesFileAndDir(t *testing.T) {
	s, cfg := openSQLite(t)

	assert.Equal(t, config.EngineSQLite, s.Engine())
	_, err := os.Stat(cfg.Database)
	assert.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_UnknownEngine(t *testing.T) {
	cfg := &config.Config{Engine: "oracle", Database: "x"}

	s, err := Open(context.Background(), cfg)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, config.ErrConfiguration)
	assert.NotErrorIs(t, err, ErrConnection)
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	id := insertBytes(t, s, "keep.txt", "text/plain", []byte("keep"))

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx))

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'goose_db_version'`).Scan(&name)
	require.NoError(t, err, "expected goose_db_version table to exist after migrations")

	f, err := s.GetFileByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), f.Data)
}

func TestEnsureSchema_ReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	insertBytes(t, s, "a.bin", "application/octet-stream", []byte{1, 2, 3})
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestInsertAndGet_RoundTrip(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	data := []byte("hello blob\x00\xff")
	id := insertBytes(t, s, "hello.txt", "text/plain", data)
	assert.Positive(t, id)

	f, err := s.GetFileByID(ctx, id)
	require.NoError(t, err)

	want := &models.File{
		FileInfo: models.FileInfo{
			ID:       id,
			Filename: "hello.txt",
			MimeType: "text/plain",
			Size:     int64(len(data)),
			SHA256:   cryptox.SHA256Hex(data),
		},
		Data: data,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("file mismatch (-want +got):\n%s", diff)
	}

	e, err := s.GetFileForExport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", e.Filename)
	assert.Equal(t, data, e.Data)
	assert.Equal(t, cryptox.SHA256Hex(data), e.SHA256)
}

func TestInsert_IDsIncrease(t *testing.T) {
	s, _ := openSQLite(t)

	a := insertBytes(t, s, "a", "text/plain", []byte("a"))
	b := insertBytes(t, s, "b", "text/plain", []byte("b"))
	assert.Greater(t, b, a)
}

func TestInsert_EmptyPayload(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	id := insertBytes(t, s, "empty", "application/octet-stream", nil)

	f, err := s.GetFileByID(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, f.Data)
	assert.Empty(t, f.Data)
	assert.Zero(t, f.Size)
	assert.Equal(t, cryptox.SHA256Hex(nil), f.SHA256)
}

func TestInsert_RejectsMissingMetadata(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	_, err := s.InsertFile(ctx, "", "text/plain", 1, []byte("x"), cryptox.SHA256Hex([]byte("x")))
	assert.ErrorIs(t, err, ErrWrite)

	_, err = s.InsertFile(ctx, "x", "", 1, []byte("x"), cryptox.SHA256Hex([]byte("x")))
	assert.ErrorIs(t, err, ErrWrite)
}

func TestInsert_StoresMetadataAsGiven(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	id, err := s.InsertFile(ctx, "lie.txt", "text/plain", 999, []byte("abc"), "not-a-digest")
	require.NoError(t, err)

	f, err := s.GetFileByID(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 999, f.Size)
	assert.Equal(t, "not-a-digest", f.SHA256)
}

func TestInsert_DigestCheck(t *testing.T) {
	s, _ := openSQLite(t, WithDigestCheck())
	ctx := context.Background()
	data := []byte("abc")

	_, err := s.InsertFile(ctx, "a", "text/plain", 3, data, cryptox.SHA256Hex([]byte("abd")))
	assert.ErrorIs(t, err, cryptox.ErrIntegrity)

	_, err = s.InsertFile(ctx, "a", "text/plain", 4, data, cryptox.SHA256Hex(data))
	assert.ErrorIs(t, err, cryptox.ErrIntegrity)

	_, err = s.InsertFile(ctx, "a", "text/plain", 3, data, cryptox.SHA256Hex(data))
	assert.NoError(t, err)
}

func TestGetAllFiles_EmptyAndOrdered(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	list, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	ids := []int64{
		insertBytes(t, s, "1.txt", "text/plain", []byte("one")),
		insertBytes(t, s, "2.png", "image/png", []byte("two")),
		insertBytes(t, s, "3.bin", "application/octet-stream", []byte("three")),
	}

	list, err = s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, f := range list {
		assert.Equal(t, ids[i], f.ID)
	}
	assert.Equal(t, "image/png", list[1].MimeType)
	assert.EqualValues(t, 5, list[2].Size)
	assert.Equal(t, cryptox.SHA256Hex([]byte("three")), list[2].SHA256)
}

func TestGet_NotFound(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	_, err := s.GetFileByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetFileForExport(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetLastFile(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLastFile(t *testing.T) {
	s, _ := openSQLite(t)

	insertBytes(t, s, "first", "text/plain", []byte("1"))
	last := insertBytes(t, s, "second", "text/plain", []byte("2"))

	f, err := s.GetLastFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, last, f.ID)
	assert.Equal(t, "second", f.Filename)
}

func TestDeleteFile(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	keep := insertBytes(t, s, "keep", "text/plain", []byte("k"))
	gone := insertBytes(t, s, "gone", "text/plain", []byte("g"))

	require.NoError(t, s.DeleteFile(ctx, gone))

	_, err := s.GetFileByID(ctx, gone)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].ID)

	err = s.DeleteFile(ctx, gone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFile_CompactsDatabase(t *testing.T) {
	s, cfg := openSQLite(t)
	ctx := context.Background()

	payload := make([]byte, 4<<20)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	id := insertBytes(t, s, "big.bin", "application/octet-stream", payload)
	before, err := os.Stat(cfg.Database)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile(ctx, id))

	after, err := os.Stat(cfg.Database)
	require.NoError(t, err)
	assert.Less(t, after.Size(), before.Size())
	assert.Less(t, after.Size(), int64(1<<20))
}

func TestDeleteFile_CompactionSurvivesCanceledContext(t *testing.T) {
	s, _ := openSQLite(t)

	id := insertBytes(t, s, "x", "text/plain", []byte("x"))
	require.NoError(t, s.DeleteFile(context.Background(), id))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.compact(ctx))
}

// Sequence shared with the client/server parity tests: the same inputs must
// produce the same observable results on every engine.
func runParitySequence(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	small := []byte{0x7f}
	large := bytes.Repeat([]byte("0123456789"), 100_000)

	ids := []int64{
		insertBytes(t, s, "empty.dat", "application/octet-stream", []byte{}),
		insertBytes(t, s, "one.dat", "application/octet-stream", small),
		insertBytes(t, s, "big.txt", "text/plain", large),
	}

	list, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, want := range [][]byte{{}, small, large} {
		assert.Equal(t, ids[i], list[i].ID)
		assert.EqualValues(t, len(want), list[i].Size)
		assert.Equal(t, cryptox.SHA256Hex(want), list[i].SHA256)

		e, err := s.GetFileForExport(ctx, ids[i])
		require.NoError(t, err)
		assert.True(t, bytes.Equal(want, e.Data), "payload %d differs", i)
		assert.NoError(t, cryptox.Verify(e.SHA256, e.Data))
	}

	require.NoError(t, s.DeleteFile(ctx, ids[1]))
	_, err = s.GetFileByID(ctx, ids[1])
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestParity_SQLite(t *testing.T) {
	s, _ := openSQLite(t)
	runParitySequence(t, s)
}

func TestClose_Idempotent(t *testing.T) {
	s, _ := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.GetAllFiles(ctx)
	assert.ErrorIs(t, err, ErrConnection)
	_, err = s.InsertFile(ctx, "a", "text/plain", 0, nil, "")
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, s.DeleteFile(ctx, 1), ErrConnection)
	assert.ErrorIs(t, s.EnsureSchema(ctx), ErrConnection)
	assert.True(t, errors.Is(s.Ping(ctx), ErrConnection))
}

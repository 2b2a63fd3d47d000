package filex

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/blobvault/internal/cryptox"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_RelativeResolvesAgainstCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("exports")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(tmp, "exports"))
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	require.Equal(t, want, gotReal)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(dir)
	require.NoError(t, err)
	second, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "exports")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	_, err := EnsureDir(p)
	require.Error(t, err)
}

func TestReadLocalFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data.json")
	body := []byte(`{"a":1}`)
	require.NoError(t, os.WriteFile(p, body, 0o600))

	f, err := ReadLocalFile(p)
	require.NoError(t, err)
	assert.Equal(t, "data.json", f.Name)
	assert.Equal(t, "application/json", f.MimeType)
	assert.EqualValues(t, len(body), f.Size)
	assert.Equal(t, body, f.Data)
	assert.Equal(t, cryptox.SHA256Hex(body), f.SHA256)
}

func TestReadLocalFile_Empty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(p, nil, 0o600))

	f, err := ReadLocalFile(p)
	require.NoError(t, err)
	assert.Zero(t, f.Size)
	assert.Equal(t, DefaultMimeType, f.MimeType)
	assert.Equal(t, cryptox.SHA256Hex(nil), f.SHA256)
}

func TestReadLocalFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadLocalFile(filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = ReadLocalFile(dir)
	assert.Error(t, err)
}

func TestDetectMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"extension wins", "a.png", []byte("not really a png"), "image/png"},
		{"params stripped", "page.html", nil, "text/html"},
		{"sniffed png", "image", png, "image/png"},
		{"sniffed text", "notes", []byte("plain words here\n"), "text/plain"},
		{"unknown binary", "blob.zzzunknown", []byte{0x00, 0x01, 0x02, 0xfe}, DefaultMimeType},
		{"no data no ext", "nothing", nil, DefaultMimeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMimeType(tt.file, tt.data))
		})
	}
}

func TestBackupName(t *testing.T) {
	tests := map[string]string{
		"report.pdf": "report_backup.pdf",
		"a.tar.gz":   "a_backup.tar.gz",
		"README":     "README_backup",
		".bashrc":    ".bashrc_backup",
	}
	for in, want := range tests {
		assert.Equal(t, want, BackupName(in, "_backup"), in)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	p, err := UniquePath(dir, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), p)

	require.NoError(t, os.WriteFile(p, []byte("1"), 0o600))
	p, err = UniquePath(dir, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_1.txt"), p)

	require.NoError(t, os.WriteFile(p, []byte("2"), 0o600))
	p, err = UniquePath(dir, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_2.txt"), p)
}

func TestWriteNew_NeverOverwrites(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.bin")

	require.NoError(t, WriteNew(p, []byte("first")))
	err := WriteNew(p, []byte("second"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

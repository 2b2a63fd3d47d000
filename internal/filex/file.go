// Package filex holds the local file helpers used when files enter or leave
// the store: reading a file with its metadata, MIME detection, backup naming
// and writes that never replace an existing file.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/blobvault/internal/cryptox"
)

// DefaultMimeType is used when neither the extension nor the content
// identifies the file.
const DefaultMimeType = "application/octet-stream"

// maxDisambiguator bounds the numeric suffixes tried by UniquePath.
const maxDisambiguator = 10000

// LocalFile is a file read from disk with the metadata stored alongside it.
type LocalFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
	SHA256   string
}

// EnsureDir creates dir (and parents) if needed and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// ReadLocalFile reads the regular file at path and derives its base name,
// MIME type, size and digest.
func ReadLocalFile(path string) (*LocalFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	return &LocalFile{
		Name:     name,
		MimeType: DetectMimeType(name, data),
		Size:     int64(len(data)),
		Data:     data,
		SHA256:   cryptox.SHA256Hex(data),
	}, nil
}

// DetectMimeType guesses the media type from the extension first and the
// content second. Parameters such as "; charset=utf-8" are dropped.
func DetectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return stripParams(t)
	}
	if len(data) > 0 {
		if m := mimetype.Detect(data); m != nil {
			return stripParams(m.String())
		}
	}
	return DefaultMimeType
}

func stripParams(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return t
}

// BackupName inserts suffix before the extension of name. The extension
// starts at the first dot, so "a.tar.gz" becomes "a<suffix>.tar.gz"; names
// without a dot, or starting with one, get the suffix appended.
func BackupName(name, suffix string) string {
	idx := strings.IndexByte(name, '.')
	if idx <= 0 {
		return name + suffix
	}
	return name[:idx] + suffix + name[idx:]
}

// UniquePath returns dir/name, or dir/<stem>_<n><ext> with the smallest n
// for which no file exists yet.
func UniquePath(dir, name string) (string, error) {
	p := filepath.Join(dir, name)
	if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
		return p, nil
	} else if err != nil {
		return "", fmt.Errorf("stat %s: %w", p, err)
	}

	for n := 1; n < maxDisambiguator; n++ {
		p = filepath.Join(dir, BackupName(name, "_"+strconv.Itoa(n)))
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			return p, nil
		} else if err != nil {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}

// WriteNew writes data to path, failing if the file already exists.
func WriteNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

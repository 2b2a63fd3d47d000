package exporter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/blobvault/internal/filex"
)

// writeAttempts bounds retries when another writer takes the chosen name
// between UniquePath and the exclusive create.
const writeAttempts = 5

// LocalDestination writes into Dir. A non-empty Suffix is inserted before
// the extension ("report.pdf" → "report_backup.pdf"). Existing files are
// never replaced; a numeric disambiguator is appended instead.
type LocalDestination struct {
	Dir    string
	Suffix string
}

func (d LocalDestination) Write(ctx context.Context, name string, data []byte) (string, error) {
	dir, err := filex.EnsureDir(d.Dir)
	if err != nil {
		return "", err
	}

	base := safeBase(name)
	if d.Suffix != "" {
		base = filex.BackupName(base, d.Suffix)
	}

	for i := 0; i < writeAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p, err := filex.UniquePath(dir, base)
		if err != nil {
			return "", err
		}
		err = filex.WriteNew(p, data)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("could not find a free name for %s in %s", base, dir)
}

func (d LocalDestination) ReadBack(_ context.Context, location string) ([]byte, error) {
	return os.ReadFile(location)
}

// safeBase drops any directory part of a stored filename so exports stay
// inside the target directory.
func safeBase(name string) string {
	b := filepath.Base(filepath.FromSlash(name))
	if b == "." || b == ".." || b == string(filepath.Separator) || b == "" {
		return "file"
	}
	return b
}

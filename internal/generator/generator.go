// Package generator writes test payloads: text files of random decimal
// digits separated by spaces, of an exact size in mebibytes.
package generator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
)

// DefaultFileName is the output name used when none is given.
const DefaultFileName = "random_data.bin"

const (
	mib          = 1024 * 1024
	digitsPerRow = 10000
)

// ErrInvalidSize is returned for a non-positive size.
var ErrInvalidSize = errors.New("size_mb must be a positive integer")

// Generate writes exactly sizeMB MiB to w and returns the byte count. Each
// row holds digitsPerRow digits and ends with a newline; the last row is
// cut short to hit the exact size.
func Generate(w io.Writer, sizeMB int) (int64, error) {
	return generate(w, sizeMB, rand.IntN)
}

func generate(w io.Writer, sizeMB int, intN func(int) int) (int64, error) {
	if sizeMB <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidSize, sizeMB)
	}

	total := int64(sizeMB) * mib
	bw := bufio.NewWriterSize(w, mib)
	row := make([]byte, 0, digitsPerRow*2)

	var written int64
	for written < total {
		row = row[:0]
		for i := 0; i < digitsPerRow; i++ {
			if i > 0 {
				row = append(row, ' ')
			}
			row = append(row, byte('0'+intN(10)))
		}
		row = append(row, '\n')

		if rem := total - written; int64(len(row)) > rem {
			row = row[:rem]
		}
		n, err := bw.Write(row)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	if err := bw.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// GenerateFile creates (or truncates) path and fills it via Generate.
func GenerateFile(path string, sizeMB int) (int64, error) {
	if sizeMB <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidSize, sizeMB)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := Generate(f, sizeMB)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	return n, err
}

// Package cryptox holds the canonical content digest used to verify stored
// payloads: SHA-256, encoded as 64 lowercase hexadecimal characters with no
// prefix.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrIntegrity reports a payload whose digest does not match the stored one.
var ErrIntegrity = errors.New("integrity error")

// DigestLen is the length of a hex-encoded SHA-256 digest.
const DigestLen = sha256.Size * 2

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
//
// Example:
//
//	SHA256Hex([]byte("abc"))
//	// "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256File streams the file at path through SHA-256 and returns the
// lowercase hex digest.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsDigest reports whether s is in canonical form.
func IsDigest(s string) bool {
	if len(s) != DigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Verify recomputes the digest of data and compares it with expected.
// A mismatch is returned as ErrIntegrity carrying both values.
func Verify(expected string, data []byte) error {
	return Compare(expected, SHA256Hex(data))
}

// Compare checks a freshly computed digest against the stored one.
func Compare(expected, actual string) error {
	if expected != actual {
		return fmt.Errorf("%w: sha256 mismatch: stored %s, calculated %s", ErrIntegrity, expected, actual)
	}
	return nil
}

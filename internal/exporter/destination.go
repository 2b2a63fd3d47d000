// Package exporter writes stored payloads out of the database: to a local
// directory or to an S3-compatible bucket.
package exporter

import "context"

// Destination receives exported files.
//
// Write stores data under a name derived from name and returns where it
// went. ReadBack returns the bytes found at a location previously returned
// by Write, so callers can verify what actually landed.
type Destination interface {
	Write(ctx context.Context, name string, data []byte) (location string, err error)
	ReadBack(ctx context.Context, location string) ([]byte, error)
}

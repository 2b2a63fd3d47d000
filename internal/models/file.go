// Package models defines the records exchanged with the storage layer.
package models

// FileInfo is the metadata of a stored file, without its payload.
type FileInfo struct {
	// ID is assigned by the database on insert.
	ID int64

	// Filename is the caller-supplied name; not unique.
	Filename string

	// MimeType is caller supplied and not validated.
	MimeType string

	// Size is the payload length in bytes as recorded at insert time.
	Size int64

	// SHA256 is the lowercase hex digest recorded at insert time.
	SHA256 string
}

// File is a full record including the payload.
type File struct {
	FileInfo

	// Data is the stored payload. It is never modified after insert.
	Data []byte
}

// ExportFile is what is needed to write a stored file back to disk and
// check the result.
type ExportFile struct {
	Filename string
	Data     []byte
	SHA256   string
}

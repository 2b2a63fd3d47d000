// Package services holds the caller-side workflows built on the storage
// layer: adding files from disk, exporting them with verification, and the
// insert/read-back/backup round trip.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/cryptox"
	"github.com/dmitrijs2005/blobvault/internal/exporter"
	"github.com/dmitrijs2005/blobvault/internal/filex"
	"github.com/dmitrijs2005/blobvault/internal/logging"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// BackupSuffix is inserted before the extension of round-trip copies.
const BackupSuffix = "_backup"

// Repository is the storage surface used by FileService. *storage.Store
// implements it.
type Repository interface {
	Engine() config.Engine
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	InsertFile(ctx context.Context, filename, mimeType string, size int64, data []byte, digest string) (int64, error)
	GetAllFiles(ctx context.Context) ([]models.FileInfo, error)
	GetFileByID(ctx context.Context, id int64) (*models.File, error)
	GetLastFile(ctx context.Context) (*models.File, error)
	GetFileForExport(ctx context.Context, id int64) (*models.ExportFile, error)
	DeleteFile(ctx context.Context, id int64) error
}

// ExportResult describes one verified export.
type ExportResult struct {
	ID       int64
	Filename string
	Location string
	Size     int64
	SHA256   string
}

// RoundTripResult is the outcome of RoundTrip.
type RoundTripResult struct {
	Inserted models.FileInfo
	Export   ExportResult
}

// Status is a connection summary for the status command.
type Status struct {
	Engine    config.Engine
	Connected bool
	Files     int64
	Err       error
}

type FileService struct {
	repo Repository
	log  logging.Logger
}

func NewFileService(repo Repository, log logging.Logger) *FileService {
	if log == nil {
		log = logging.NewNop()
	}
	return &FileService{repo: repo, log: log}
}

// AddFromPath reads the file at path, derives its metadata and stores it.
func (s *FileService) AddFromPath(ctx context.Context, path string) (*models.FileInfo, error) {
	f, err := filex.ReadLocalFile(path)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.InsertFile(ctx, f.Name, f.MimeType, f.Size, f.Data, f.SHA256)
	if err != nil {
		return nil, err
	}

	return &models.FileInfo{
		ID:       id,
		Filename: f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
		SHA256:   f.SHA256,
	}, nil
}

func (s *FileService) List(ctx context.Context) ([]models.FileInfo, error) {
	return s.repo.GetAllFiles(ctx)
}

func (s *FileService) Show(ctx context.Context, id int64) (*models.File, error) {
	return s.repo.GetFileByID(ctx, id)
}

func (s *FileService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteFile(ctx, id)
}

// Verify recomputes the digest of the stored payload and compares it with
// the stored digest and size.
func (s *FileService) Verify(ctx context.Context, id int64) (*models.FileInfo, error) {
	f, err := s.repo.GetFileByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cryptox.Verify(f.SHA256, f.Data); err != nil {
		return &f.FileInfo, fmt.Errorf("file %d: %w", id, err)
	}
	if f.Size != int64(len(f.Data)) {
		return &f.FileInfo, fmt.Errorf("%w: file %d: stored size %d, payload %d bytes", cryptox.ErrIntegrity, id, f.Size, len(f.Data))
	}
	return &f.FileInfo, nil
}

// Export writes the payload of record id to dest, reads it back and checks
// it against the stored digest.
func (s *FileService) Export(ctx context.Context, id int64, dest exporter.Destination) (*ExportResult, error) {
	e, err := s.repo.GetFileForExport(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, id, e, dest)
}

func (s *FileService) export(ctx context.Context, id int64, e *models.ExportFile, dest exporter.Destination) (*ExportResult, error) {
	loc, err := dest.Write(ctx, e.Filename, e.Data)
	if err != nil {
		return nil, fmt.Errorf("export file %d: %w", id, err)
	}

	res := &ExportResult{
		ID:       id,
		Filename: e.Filename,
		Location: loc,
		Size:     int64(len(e.Data)),
		SHA256:   e.SHA256,
	}

	written, err := dest.ReadBack(ctx, loc)
	if err != nil {
		return res, fmt.Errorf("read back %s: %w", loc, err)
	}
	if err := cryptox.Verify(e.SHA256, written); err != nil {
		s.log.Warn(ctx, "export verification failed", "id", id, "location", loc)
		return res, fmt.Errorf("export file %d to %s: %w", id, loc, err)
	}

	s.log.Info(ctx, "file exported", "id", id, "location", loc, "size", res.Size)
	return res, nil
}

// RoundTrip inserts the file at path, reads back the newest record and saves
// it into dir with BackupSuffix, verifying the copy.
func (s *FileService) RoundTrip(ctx context.Context, path, dir string) (*RoundTripResult, error) {
	info, err := s.AddFromPath(ctx, path)
	if err != nil {
		return nil, err
	}

	last, err := s.repo.GetLastFile(ctx)
	if err != nil {
		return nil, err
	}
	if last.ID != info.ID {
		s.log.Warn(ctx, "newest record is not the inserted one", "inserted", info.ID, "last", last.ID)
	}

	dest := exporter.LocalDestination{Dir: dir, Suffix: BackupSuffix}
	e := &models.ExportFile{Filename: last.Filename, Data: last.Data, SHA256: last.SHA256}
	res, err := s.export(ctx, last.ID, e, dest)
	if err != nil {
		return nil, err
	}

	return &RoundTripResult{Inserted: *info, Export: *res}, nil
}

// Status pings the engine and counts records. Failures are reported in the
// result, not returned.
func (s *FileService) Status(ctx context.Context) Status {
	st := Status{Engine: s.repo.Engine()}
	if err := s.repo.Ping(ctx); err != nil {
		st.Err = err
		return st
	}
	st.Connected = true

	n, err := s.repo.Count(ctx)
	if err != nil {
		st.Err = err
		return st
	}
	st.Files = n
	return st
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/cryptox"
	"github.com/dmitrijs2005/blobvault/internal/exporter"
	"github.com/dmitrijs2005/blobvault/internal/logging"
	"github.com/dmitrijs2005/blobvault/internal/services"
	"github.com/dmitrijs2005/blobvault/internal/storage"
)

// Streams are the standard streams a command reads from and writes to.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// runtime is the state shared by the commands of one invocation.
type runtime struct {
	flags   config.Flags
	streams Streams
	reader  *bufio.Reader
	runID   string

	// cfg is the last configuration loaded, kept for error reporting.
	cfg *config.Config
}

func newRuntime(s Streams) *runtime {
	if s.In == nil {
		s.In = os.Stdin
	}
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Err == nil {
		s.Err = os.Stderr
	}
	return &runtime{
		streams: s,
		reader:  bufio.NewReader(s.In),
		runID:   uuid.NewString(),
	}
}

func (r *runtime) loadConfig() (*config.Config, error) {
	if r.flags.AskPassword && r.flags.Password == "" {
		pw, err := GetPassword(r.streams.Err)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		r.flags.Password = string(pw)
		clear(pw)
	}

	cfg, err := config.LoadWithFlags(&r.flags)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	return cfg, nil
}

func (r *runtime) newLogger(cfg *config.Config) (logging.Logger, io.Closer, error) {
	l, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Writer: r.streams.Err,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	return l.With("run", r.runID), closer, nil
}

// App is one open storage session and the operations the commands run on it.
type App struct {
	cfg     *config.Config
	log     logging.Logger
	store   *storage.Store
	svc     *services.FileService
	out     io.Writer
	closers []io.Closer
}

// newApp loads the configuration, opens the store and ensures the schema.
// Whatever was opened is closed again on failure.
func (r *runtime) newApp(ctx context.Context) (*App, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}

	log, logCloser, err := r.newLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, out: r.streams.Out, closers: []io.Closer{logCloser}}

	st, err := storage.Open(ctx, cfg, storage.WithLogger(log), storage.WithDigestCheck())
	if err != nil {
		log.Error(ctx, "open storage failed", "error", err)
		_ = a.Close()
		return nil, err
	}
	a.store = st
	a.closers = append([]io.Closer{st}, a.closers...)

	if err := st.EnsureSchema(ctx); err != nil {
		log.Error(ctx, "ensure schema failed", "error", err)
		_ = a.Close()
		return nil, err
	}

	a.svc = services.NewFileService(st, log)
	return a, nil
}

// Close releases the store, then the log output.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) prompt() string {
	return fmt.Sprintf("(%s)", a.cfg.Engine)
}

func (a *App) Status(ctx context.Context) error {
	st := a.svc.Status(ctx)
	printTarget(a.out, a.cfg)
	if st.Err != nil {
		fmt.Fprintln(a.out, "connected: no")
		return st.Err
	}
	fmt.Fprintln(a.out, "connected: yes")
	fmt.Fprintf(a.out, "files:     %d\n", st.Files)
	return nil
}

func printTarget(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "engine:    %s\n", cfg.Engine)
	fmt.Fprintf(w, "target:    %s\n", cfg)
}

func (a *App) List(ctx context.Context) error {
	files, err := a.svc.List(ctx)
	if err != nil {
		return err
	}
	return printFileTable(a.out, files)
}

func (a *App) Show(ctx context.Context, id int64) error {
	f, err := a.svc.Show(ctx, id)
	if err != nil {
		return err
	}
	return printFile(a.out, f)
}

func (a *App) Add(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		info, err := a.svc.AddFromPath(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "added %d: %s (%s, %s)\n", info.ID, info.Filename, info.MimeType, humanSize(info.Size))
	}
	return nil
}

type exportOptions struct {
	dir    string
	suffix string
	s3     bool
}

func (a *App) destination(ctx context.Context, o exportOptions) (exporter.Destination, error) {
	if o.s3 {
		return exporter.NewS3Destination(ctx, a.cfg)
	}
	dir := o.dir
	if dir == "" {
		dir = a.cfg.ExportDir
	}
	return exporter.LocalDestination{Dir: dir, Suffix: o.suffix}, nil
}

func (a *App) Export(ctx context.Context, id int64, o exportOptions) error {
	dest, err := a.destination(ctx, o)
	if err != nil {
		return err
	}
	res, err := a.svc.Export(ctx, id, dest)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "exported %d to %s (%s, sha256 verified)\n", res.ID, res.Location, humanSize(res.Size))
	return nil
}

func (a *App) Delete(ctx context.Context, id int64) error {
	if err := a.svc.Delete(ctx, id); err != nil {
		return err
	}
	if a.cfg.Engine.Embedded() {
		fmt.Fprintf(a.out, "deleted %d (database compacted)\n", id)
		return nil
	}
	fmt.Fprintf(a.out, "deleted %d\n", id)
	return nil
}

func (a *App) Verify(ctx context.Context, id int64) error {
	info, err := a.svc.Verify(ctx, id)
	if errors.Is(err, cryptox.ErrIntegrity) {
		fmt.Fprintf(a.out, "file %d: FAILED\n", id)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "file %d: OK (sha256 %s)\n", id, info.SHA256)
	return nil
}

// RoundTrip stores path, reads the newest record back and writes a backup
// copy into dir, or next to path when dir is empty.
func (a *App) RoundTrip(ctx context.Context, path, dir string) error {
	if dir == "" {
		dir = filepath.Dir(path)
	}
	res, err := a.svc.RoundTrip(ctx, path, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "inserted %d: %s (%s)\n", res.Inserted.ID, res.Inserted.Filename, humanSize(res.Inserted.Size))
	fmt.Fprintf(a.out, "saved %s\n", res.Export.Location)
	fmt.Fprintf(a.out, "file check: OK (sha256 %s)\n", res.Export.SHA256)
	return nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/blobvault/internal/buildinfo"
	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/generator"
	"github.com/dmitrijs2005/blobvault/internal/storage"
)

func NewRootCommand(s Streams) *cobra.Command {
	r := newRuntime(s)

	cmd := &cobra.Command{
		Use:           "blobvault",
		Short:         "Store files as BLOBs in SQLite, MySQL or PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(r.streams.In)
	cmd.SetOut(r.streams.Out)
	cmd.SetErr(r.streams.Err)
	r.flags.Register(cmd.PersistentFlags())

	cmd.AddCommand(
		newStatusCommand(r),
		newListCommand(r),
		newShowCommand(r),
		newAddCommand(r),
		newExportCommand(r),
		newDeleteCommand(r),
		newVerifyCommand(r),
		newRoundTripCommand(r),
		newGenerateCommand(r),
		newEngineCommand(r),
		newShellCommand(r),
		newVersionCommand(r),
	)
	return cmd
}

// withApp runs fn on a freshly opened session and closes it afterwards.
func (r *runtime) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	a, err := r.newApp(ctx)
	if err != nil {
		return mapCommandError(err)
	}
	defer a.Close()
	return mapCommandError(fn(ctx, a))
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s", usage)
		}
		return nil
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

func newStatusCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the database connection and count stored files",
		Args:  exactArgs(0, "status takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			opened := false
			err := r.withApp(cmd, func(ctx context.Context, a *App) error {
				opened = true
				return a.Status(ctx)
			})
			if err != nil && !opened && r.cfg != nil && errors.Is(err, storage.ErrConnection) {
				printTarget(r.streams.Out, r.cfg)
				fmt.Fprintln(r.streams.Out, "connected: no")
			}
			return err
		},
	}
}

func newListCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored files, oldest first",
		Args:    exactArgs(0, "list takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.List(ctx)
			})
		},
	}
}

func newShowCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show metadata and the first bytes of a stored file",
		Args:  exactArgs(1, "show requires exactly one id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Show(ctx, id)
			})
		},
	}
}

func newAddCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Store files from disk",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErrorf("add requires at least one path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Add(ctx, args...)
			})
		},
	}
}

func newExportCommand(r *runtime) *cobra.Command {
	var o exportOptions

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored file out and verify the copy",
		Example: "  blobvault export 3 --dir ./out\n" +
			"  blobvault export 3 --suffix _backup\n" +
			"  blobvault export 3 --s3",
		Args: exactArgs(1, "export requires exactly one id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if o.s3 && (o.dir != "" || o.suffix != "") {
				return usageErrorf("--s3 cannot be combined with --dir or --suffix")
			}
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Export(ctx, id, o)
			})
		},
	}

	cmd.Flags().StringVar(&o.dir, "dir", "", "target directory (default export_dir from settings)")
	cmd.Flags().StringVar(&o.suffix, "suffix", "", "suffix inserted before the extension")
	cmd.Flags().BoolVar(&o.s3, "s3", false, "upload to the configured S3 bucket")
	return cmd
}

func newDeleteCommand(r *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored file",
		Args:  exactArgs(1, "delete requires exactly one id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := Confirm(r.reader, fmt.Sprintf("Delete file %d?", id), r.streams.Out)
				if err != nil {
					return mapCommandError(err)
				}
				if !ok {
					fmt.Fprintln(r.streams.Out, "Aborted.")
					return nil
				}
			}
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Delete(ctx, id)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newVerifyCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Recompute the digest of a stored file and compare",
		Args:  exactArgs(1, "verify requires exactly one id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Verify(ctx, id)
			})
		},
	}
}

func newRoundTripCommand(r *runtime) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "roundtrip <path>",
		Short: "Store a file, read the newest record back and save a verified _backup copy",
		Args:  exactArgs(1, "roundtrip requires exactly one path"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.RoundTrip(ctx, args[0], dir)
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "where to save the copy (default: next to the input)")
	return cmd
}

func newGenerateCommand(r *runtime) *cobra.Command {
	var (
		sizeMB int
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a file of random digits for testing",
		Args:  exactArgs(0, "generate takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := generator.GenerateFile(output, sizeMB)
			if err != nil {
				return mapCommandError(err)
			}
			_, err = fmt.Fprintf(r.streams.Out, "wrote %s (%s bytes) to %s\n", humanize.IBytes(uint64(n)), humanize.Comma(n), output)
			return mapCommandError(err)
		},
	}

	cmd.Flags().IntVar(&sizeMB, "size-mb", 1, "size in MiB")
	cmd.Flags().StringVarP(&output, "output", "o", generator.DefaultFileName, "output file")
	return cmd
}

func newEngineCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "engine [sqlite|mysql|postgres]",
		Short:     "Show or switch the engine in the settings file",
		ValidArgs: []string{string(config.EngineSQLite), string(config.EngineMySQL), string(config.EnginePostgres)},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("engine takes at most one argument")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := r.flags.Path()
			if len(args) == 0 {
				cfg, err := r.loadConfig()
				if err != nil {
					return mapCommandError(err)
				}
				_, err = fmt.Fprintln(r.streams.Out, cfg.Engine)
				return mapCommandError(err)
			}
			e, err := config.ParseEngine(args[0])
			if err != nil {
				return mapCommandError(err)
			}
			if err := config.SetEngine(path, string(e)); err != nil {
				return mapCommandError(err)
			}
			_, err = fmt.Fprintf(r.streams.Out, "engine set to %s in %s\n", e, path)
			return mapCommandError(err)
		},
	}
}

func newShellCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell over one storage session",
		Args:  exactArgs(0, "shell takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *App) error {
				printlnFn("blobvault shell (type 'help' for commands)")
				runREPL(ctx, a, a.prompt, bufio.NewScanner(r.reader))
				return nil
			})
		},
	}
}

func newVersionCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  exactArgs(0, "version takes no arguments"),
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(r.streams.Out)
		},
	}
}

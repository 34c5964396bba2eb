package main

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"featnav/internal/console"
	"featnav/internal/export"
	"featnav/internal/source/bolt"
	"featnav/internal/store"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "import <dataset.db>",
		Short: "Copy the configured source into a bolt dataset",
		Long: "import reads every row of the configured source, in source order, and writes it " +
			"to a bolt dataset that can later be navigated with --kind bolt. An existing bucket is replaced.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := openSource(opts.cfg.Source)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening source", err)
			}
			defer func() { _ = closeSrc() }()

			ds, err := bolt.Open(args[0], bucket)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening dataset", err)
			}
			defer func() { _ = ds.Close() }()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			n, err := ds.Import(ctx, src)
			if err != nil {
				return WrapExitError(ExitFailure, "import", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows from %s into %s\n", n, src.Name(), ds.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", bolt.DefaultBucket, "dataset bucket")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Write the loaded records to a csv, json or yaml file",
		Long: "export loads the configured source and writes one row per record. The format is taken " +
			"from --format or the file extension; a trailing .zst or .lz4 compresses the output.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var eo export.Options
			if format != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return WrapExitError(ExitCommandError, "export", err)
				}
				eo.Format = f
			} else if _, err := export.FormatForPath(args[0]); err != nil {
				return WrapExitError(ExitCommandError, "export", err)
			}

			a, err := newApp(opts.cfg, false, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			if _, err := a.load(ctx); err != nil {
				return err
			}

			var n int
			err = a.nav.Export(func(s *store.Store) error {
				var err error
				n, err = export.WriteFile(args[0], s, eo)
				return err
			})
			if err != nil {
				return WrapExitError(ExitFailure, "export", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (csv|json|yaml)")
	return cmd
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the source once and print collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, false, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			if _, err := a.load(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Statistics:")
			console.WriteStats(out, a.nav.Stats(), a.env.Format)
			if rss, ok := residentMemory(); ok {
				_, _ = fmt.Fprintf(out, "  %-16s %s KiB\n", "Memory (RSS):", a.env.Format.Number(int(rss/1024)))
			}
			return nil
		},
	}
}

// residentMemory reports this process's resident set size in bytes.
func residentMemory() (uint64, bool) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		clilog.Debug("process info unavailable", "err", err)
		return 0, false
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		clilog.Debug("memory info unavailable", "err", err)
		return 0, false
	}
	return mem.RSS, true
}

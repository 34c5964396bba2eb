package main

import (
	"github.com/spf13/cobra"

	"featnav/internal/config"
	"featnav/internal/logging"
)

// rootOptions holds global flags for all commands. Non-empty values
// override the config file.
type rootOptions struct {
	ConfigPath string
	Kind       string
	Source     string
	Table      string
	Locale     string
	LogLevel   string
	LogFormat  string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "featnav",
		Short: "Step through the records of a spatial dataset",
		Long: "featnav loads the records of a spatial dataset into an ordered collection " +
			"and lets operators walk it one record at a time, framing each record's extent.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default ~/.featnav/config.toml)")
	flags.StringVar(&opts.Kind, "kind", "", "source kind (sqlite|bolt|geojson)")
	flags.StringVarP(&opts.Source, "source", "s", "", "source path")
	flags.StringVarP(&opts.Table, "table", "t", "", "sqlite table")
	flags.StringVar(&opts.Locale, "locale", "", "locale for number formatting")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format (text|json)")

	cmd.AddCommand(newConsoleCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))

	return cmd
}

// load reads the config file, applies flag overrides, validates the result
// and initializes logging.
func (o *rootOptions) load() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}

	// CLI flags override config file values
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Source.Kind, o.Kind)
	override(&cfg.Source.Path, o.Source)
	override(&cfg.Source.Table, o.Table)
	override(&cfg.Console.Locale, o.Locale)
	override(&cfg.Logging.Level, o.LogLevel)
	override(&cfg.Logging.Format, o.LogFormat)

	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Source.Path == "" {
		return NewExitError(ExitCommandError, "no source configured (set source.path or pass --source)")
	}
	cfg.Source.Path = config.ExpandHome(cfg.Source.Path)
	cfg.SSH.DataDir = config.ExpandHome(cfg.SSH.DataDir)

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	o.cfg = cfg
	return nil
}

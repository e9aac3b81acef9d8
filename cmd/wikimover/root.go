package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"WikiMover/internal/app"
	"WikiMover/internal/config"
	"WikiMover/internal/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	snapshot   string
	writeBack  bool
	logLevel   string
}

func execute(ctx context.Context, args []string) error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "wikimover",
		Short:         "Move free files from a Wikipedia to Wikimedia Commons",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $WIKIMOVER_CONFIG)")
	flags.StringVar(&opts.snapshot, "snapshot", "", "wiki snapshot file served as source and destination")
	flags.BoolVar(&opts.writeBack, "write-back", false, "save snapshot changes when the command finishes")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newTransferCmd(opts),
		newRenderCmd(opts),
		newReportCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// loadConfig reads the config file and applies the persistent flags on top.
func (o *globalOptions) loadConfig() config.Config {
	var cfg config.Config
	if o.configPath != "" {
		cfg = config.LoadPath(o.configPath)
	} else {
		cfg = config.Load()
	}

	if o.snapshot != "" {
		cfg.Snapshot.Path = o.snapshot
	}
	if o.writeBack {
		cfg.Snapshot.WriteBack = true
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg
}

func (o *globalOptions) open(cmd *cobra.Command, cfg config.Config) (*app.Application, *slog.Logger, error) {
	logger := logging.NewWriter(cmd.ErrOrStderr(), cfg.Logging.Level)
	application, err := app.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open application: %w", err)
	}
	return application, logger, nil
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool name and version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := opts.loadConfig()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Tool.Name, cfg.Tool.Version)
		},
	}
}

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"WikiMover/internal/domain"
)

type transferOptions struct {
	force         bool
	dryRun        bool
	categories    []string
	checkNeeded   bool
	tracking      bool
	deleteSource  bool
	keepDownloads bool
	concurrency   int
}

func newTransferCmd(opts *globalOptions) *cobra.Command {
	topts := &transferOptions{}

	cmd := &cobra.Command{
		Use:   "transfer <file|category|template|user>...",
		Short: "Transfer files, category members, template users or a user's uploads",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.loadConfig()
			cfg.Transfer.Force = cfg.Transfer.Force || topts.force
			cfg.Transfer.DryRun = cfg.Transfer.DryRun || topts.dryRun
			cfg.Transfer.CheckNeeded = cfg.Transfer.CheckNeeded || topts.checkNeeded
			cfg.Transfer.Tracking = cfg.Transfer.Tracking || topts.tracking
			cfg.Transfer.Delete = cfg.Transfer.Delete || topts.deleteSource
			cfg.Transfer.KeepDownloads = cfg.Transfer.KeepDownloads || topts.keepDownloads
			cfg.Transfer.Categories = append(cfg.Transfer.Categories, topts.categories...)
			if topts.concurrency > 0 {
				cfg.Transfer.Concurrency = topts.concurrency
			}

			application, _, err := opts.open(cmd, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report, runErr := application.Transfer(cmd.Context(), args, func(done, total int, res domain.TransferResult) {
				fmt.Fprintf(out, "Processing item %d of %d: %s (%s)\n", done, total, res.SourceTitle, res.State)
			})
			printReport(out, report)

			if err := application.Close(); err != nil {
				return fmt.Errorf("close: %w", err)
			}
			if cfg.Metrics.Textfile != "" {
				if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, application.Metrics()); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d of %d transfers failed", len(report.Failed), report.Total)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&topts.force, "force", "f", false, "ignore the category white- and blacklists")
	flags.BoolVarP(&topts.dryRun, "dry-run", "d", false, "render descriptions without uploading or editing")
	flags.StringSliceVarP(&topts.categories, "cat", "c", nil, "category to add to every destination page")
	flags.BoolVarP(&topts.checkNeeded, "checkcat", "k", false, "add the check-needed category for the running account")
	flags.BoolVar(&topts.tracking, "tracking", false, "add the tool's tracking category")
	flags.BoolVar(&topts.deleteSource, "delete", false, "delete source pages after a successful transfer")
	flags.BoolVar(&topts.keepDownloads, "keep-downloads", false, "keep downloaded files")
	flags.IntVarP(&topts.concurrency, "concurrency", "j", 0, "candidates processed at once")
	return cmd
}

func printReport(w io.Writer, report domain.Report) {
	for _, res := range report.Results {
		if res.DryRun {
			fmt.Fprintf(w, "\n== %s -> %s ==\n%s\n", res.SourceTitle, res.DestinationTitle, res.Text)
		}
	}

	dupes := make([]string, 0, len(report.Duplicates))
	for title := range report.Duplicates {
		dupes = append(dupes, title)
	}
	sort.Strings(dupes)
	for _, title := range dupes {
		fmt.Fprintf(w, "Skipped %s: already on the destination as %v\n", title, report.Duplicates[title])
	}
	for _, title := range report.Ineligible {
		fmt.Fprintf(w, "Skipped %s: not eligible for transfer\n", title)
	}

	for _, res := range report.Results {
		if res.Failed() {
			fmt.Fprintf(w, "Failed %s at %s: %v\n", res.SourceTitle, res.FailedAt, res.Err)
		}
		if res.NeedsReview {
			fmt.Fprintf(w, "Review %s: description rendered from malformed markup\n", res.SourceTitle)
		}
	}
	fmt.Fprintf(w, "Run %s: %d attempted, %d failed\n", report.RunID, report.Attempted, len(report.Failed))
}

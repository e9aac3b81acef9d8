package main

import (
	"errors"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"WikiMover/internal/domain"
)

func newReportCmd(opts *globalOptions) *cobra.Command {
	var titles []string

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "List logged transfer outcomes for a run or for source titles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(titles) == 0 {
				return errors.New("give a run id or --title")
			}
			cfg := opts.loadConfig()
			cfg.Snapshot.WriteBack = false

			application, _, err := opts.open(cmd, cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			var results []domain.TransferResult
			if len(args) == 1 {
				results, err = application.Outcomes(cmd.Context(), args[0])
			} else {
				results, err = application.History(cmd.Context(), titles)
			}
			if err != nil {
				return err
			}
			renderOutcomes(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&titles, "title", nil, "source title to show the transfer history of")
	return cmd
}

func renderOutcomes(w io.Writer, results []domain.TransferResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Destination", "State", "Failed At", "Error", "Review", "Finished"})
	for _, res := range results {
		var msg string
		if res.Err != nil {
			msg = res.Err.Error()
		}
		t.AppendRow(table.Row{
			res.SourceTitle,
			res.DestinationTitle,
			res.State,
			res.FailedAt,
			msg,
			res.NeedsReview,
			res.FinishedAt.Format(time.DateTime),
		})
	}
	t.Render()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <file>",
		Short: "Print the description a file would get on the destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.loadConfig()
			cfg.Snapshot.WriteBack = false

			application, _, err := opts.open(cmd, cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			text, err := application.Render(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

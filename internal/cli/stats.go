package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show or clear collection read statistics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [collection...]",
		Short: "Show read counts and last fetch times",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := a.container.Stats()
			collections := args
			if len(collections) == 0 {
				collections = tracker.Collections(cmd.Context())
			}

			tw := a.newTable()
			tw.AppendHeader(table.Row{"Collection", "Reads", "Last fetched"})
			for _, c := range collections {
				s := tracker.Stats(cmd.Context(), c)
				last := "never"
				if s.LastFetched != nil {
					last = s.LastFetched.Format(time.RFC3339)
				}
				tw.AppendRow(table.Row{c, s.ReadCount, last})
			}
			tw.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [collection]",
		Short: "Clear statistics of one collection, or of all collections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := a.container.Stats()
			if len(args) == 1 {
				tracker.Clear(cmd.Context(), args[0])
				fmt.Fprintf(a.out, "cleared statistics for %s\n", args[0])
				return nil
			}
			n := tracker.ClearAll(cmd.Context())
			fmt.Fprintf(a.out, "cleared %d statistics entries\n", n)
			return nil
		},
	})

	return cmd
}

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show idea and proposal statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := container.Stats.Get(cmd.Context(), userFlag(cmd))
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, stats)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ideas:             %d\n", stats.Total)
		fmt.Fprintf(out, "high urgency:      %d\n", stats.HighUrgency)
		fmt.Fprintf(out, "favorites:         %d\n", stats.Favorites)
		fmt.Fprintf(out, "archived:          %d\n", stats.Archived)
		fmt.Fprintf(out, "pending proposals: %d\n", stats.PendingProposals)
		printCounts(out, "by category", stats.ByCategory)
		printCounts(out, "by source", stats.BySource)
		for _, a := range stats.Agents {
			fmt.Fprintf(out, "agent %-12s processed=%d failed=%d queued=%d\n", a.ID, a.TotalProcessed, a.Failed, a.QueueDepth)
		}
		return nil
	},
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k, counts[k])
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the reviewer agent once",
	Long: `review asks the reviewer to resurface ideas now instead of waiting for the
scheduler. Types are daily, weekly, monthly, quarterly and priority; strategies
are time_based, context_based, pattern_based, serendipity and priority_queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reviewType, _ := cmd.Flags().GetString("type")
		strategy, _ := cmd.Flags().GetString("strategy")

		result, err := container.Agents.TriggerReview(cmd.Context(), userFlag(cmd), reviewType, strategy)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s review (%s): %v ideas resurfaced\n", reviewType, strategy, result["reviewed_count"])
		return nil
	},
}

func init() {
	reviewCmd.Flags().String("type", "weekly", "review type")
	reviewCmd.Flags().String("strategy", "time_based", "selection strategy")

	rootCmd.AddCommand(reviewCmd)
}

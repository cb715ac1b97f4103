package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dreamcatcher/application/services"
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Manage idea embeddings",
}

var embeddingsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Embed ideas that have no vector yet",
	Long: `generate embeds every completed idea without a stored vector, batch by batch,
until none remain. With --all the existing vectors are dropped first and every
idea is embedded again, which is needed after changing the embedding model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetInt("batch")
		all, _ := cmd.Flags().GetBool("all")
		ctx := cmd.Context()

		var (
			res services.BackfillResult
			err error
		)
		if all {
			res, err = container.Semantic.Regenerate(ctx, batch)
		} else {
			for {
				var step services.BackfillResult
				step, err = container.Semantic.Backfill(ctx, batch)
				if err != nil {
					break
				}
				res.Processed += step.Processed
				res.Failed += step.Failed
				res.Remaining = step.Remaining
				if step.Processed == 0 {
					break
				}
			}
		}
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return printJSON(cmd, res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "embedded %d ideas, %d failed, %d remaining\n", res.Processed, res.Failed, res.Remaining)
		return nil
	},
}

var embeddingsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := container.Semantic.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, stats)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "model:     %s (%d dimensions)\n", stats.Model, stats.Dimension)
		fmt.Fprintf(out, "ideas:     %d\n", stats.TotalIdeas)
		fmt.Fprintf(out, "embedded:  %d (%.1f%%)\n", stats.Embedded, stats.CoveragePct)
		fmt.Fprintf(out, "missing:   %d\n", stats.Missing)
		return nil
	},
}

func init() {
	embeddingsGenerateCmd.Flags().Int("batch", 10, "ideas embedded per batch")
	embeddingsGenerateCmd.Flags().Bool("all", false, "drop existing vectors and embed everything again")

	embeddingsCmd.AddCommand(embeddingsGenerateCmd, embeddingsStatsCmd)
	rootCmd.AddCommand(embeddingsCmd)
}

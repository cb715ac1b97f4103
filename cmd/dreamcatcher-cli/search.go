package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dreamcatcher/application/ports"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find ideas similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		hits, err := container.Semantic.Search(cmd.Context(), userFlag(cmd), strings.Join(args, " "), limit, threshold)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, hits)
		}
		printHits(cmd.OutOrStdout(), hits)
		return nil
	},
}

var relatedCmd = &cobra.Command{
	Use:   "related <idea-id>",
	Short: "Find ideas related to an existing idea",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		hits, err := container.Semantic.FindRelated(cmd.Context(), userFlag(cmd), args[0], limit, threshold)
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, hits)
		}
		printHits(cmd.OutOrStdout(), hits)
		return nil
	},
}

var similarityCmd = &cobra.Command{
	Use:   "similarity <text-a> <text-b>",
	Short: "Score the similarity of two texts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := container.Semantic.Similarity(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(cmd, map[string]float64{"similarity": score})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", score)
		return nil
	},
}

func printHits(w io.Writer, hits []ports.ScoredIdea) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "no matching ideas")
		return
	}
	for _, h := range hits {
		content := h.Idea.Content()
		if len(content) > 80 {
			content = content[:77] + "..."
		}
		fmt.Fprintf(w, "%.3f  %s  %s\n", h.Similarity, h.Idea.ID, content)
	}
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum results (default from configuration)")
	searchCmd.Flags().Float64("threshold", 0, "minimum similarity between 0 and 1 (default from configuration)")
	relatedCmd.Flags().Int("limit", 0, "maximum results (default from configuration)")
	relatedCmd.Flags().Float64("threshold", 0, "minimum similarity between 0 and 1 (default from configuration)")

	rootCmd.AddCommand(searchCmd, relatedCmd, similarityCmd)
}

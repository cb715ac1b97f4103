// Package main is the entry point for the dreamcatcher CLI, an operator tool
// for embeddings, semantic search and reviews against the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dreamcatcher/infrastructure/config"
	"dreamcatcher/infrastructure/di"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	container *di.Container
	cleanup   func()
)

var rootCmd = &cobra.Command{
	Use:     "dreamcatcher-cli",
	Short:   "Operate a Dreamcatcher deployment from the command line",
	Version: version,
	Long: `dreamcatcher-cli runs maintenance and query tasks against the same storage,
embedding and agent configuration as the API server. Configuration comes from
the environment, exactly as for the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if cfg.LogLevel == "info" {
			cfg.LogLevel = "warn"
		}
		container, cleanup, err = di.InitializeContainer(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cleanup != nil {
			cleanup()
		}
		_ = container.Logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("user", "", "user ID (default: DEFAULT_USER_ID)")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// userFlag returns --user or the configured default user.
func userFlag(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		return u
	}
	return container.Config.DefaultUserID
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

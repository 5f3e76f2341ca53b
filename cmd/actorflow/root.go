package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/spf13/cobra"
)

// logger is configured from --log-level before any command runs.
var logger = logging.NewNop()

var rootCmd = &cobra.Command{
	Use:   "actorflow",
	Short: "actorflow drives declarative workflows over an actor registry",
	Long: `actorflow runs YAML/JSON workflows whose steps dispatch actions to actors,
and merges environment overlays onto shared workflow bases.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		raw, _ := cmd.Flags().GetString("log-level")
		level, err := logging.ParseLevel(raw)
		if err != nil {
			return err
		}
		logger = logging.New(level)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "err", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the workflows")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
}

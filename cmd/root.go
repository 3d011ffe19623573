// Package cmd defines the docent command-line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docent0/docent/internal/config"
	"github.com/docent0/docent/internal/log"
)

var (
	flagVerbose bool
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "docent",
	Short: "docent - library question answering over your own documents",
	Long: `Docent answers questions against an ingested document collection.

Questions with library coverage are answered from retrieved passages with
source attribution; everything else falls back to the model's general
knowledge, clearly marked as such.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "log-json", false, "log in JSON format")
}

// setupLogger builds the process logger from flags and installs it as the
// slog default.
func setupLogger() log.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := log.NewWithWriter(os.Stderr, log.Config{Level: level, JSON: flagJSON})
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

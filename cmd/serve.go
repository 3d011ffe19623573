package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docent0/docent/internal/api"
	"github.com/docent0/docent/internal/app"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	addr := flagAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	server := api.NewServer(
		api.NewHealthHandler(a.Pool),
		api.NewQueryHandler(a.Router, a.Store),
		logger,
	)
	return server.Run(ctx, addr)
}

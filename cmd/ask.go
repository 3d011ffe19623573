package cmd

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docent0/docent/internal/app"
	"github.com/docent0/docent/internal/router"
)

var flagNoStream bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the ingested collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().BoolVar(&flagNoStream, "no-stream", false, "wait for the full answer instead of streaming")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, question string) error {
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

	out := cmd.OutOrStdout()

	if flagNoStream {
		ans, err := a.Router.Ask(ctx, question)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ans.Text)
		if ans.Note != "" {
			fmt.Fprintf(out, "\n[%s]\n", ans.Note)
		}
		if len(ans.Sources) > 0 {
			fmt.Fprintf(out, "\nSources: %s\n", strings.Join(ans.Sources, ", "))
		}
		return nil
	}

	stream := a.Router.AskStream(ctx, question)
	for ev := range stream.Events() {
		switch ev.Type {
		case router.EventChunk:
			fmt.Fprint(out, ev.Content)
		case router.EventNote:
			fmt.Fprintf(out, "[%s]\n\n", ev.Content)
		case router.EventSource:
			fmt.Fprintf(out, "\n\nSources: %s", strings.Join(ev.Sources, ", "))
		case router.EventEnd:
			fmt.Fprintln(out)
		case router.EventError:
			return fmt.Errorf("%s", ev.Content)
		}
	}
	return nil
}

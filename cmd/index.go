package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docent0/docent/internal/app"
)

var flagCategory string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the document collection",
}

var indexAddCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Ingest files or directories into the collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexAdd(cmd, args)
	},
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndexList(cmd)
	},
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove <document-id>",
	Short: "Remove a document and its fragments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndexRemove(cmd, args[0])
	},
}

func init() {
	indexAddCmd.Flags().StringVar(&flagCategory, "category", "", "category label attached to ingested fragments")
	indexCmd.AddCommand(indexAddCmd, indexListCmd, indexRemoveCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexAdd(cmd *cobra.Command, paths []string) error {
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
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			reports, err := a.Ingestor.IngestDir(ctx, path, flagCategory)
			if err != nil {
				return err
			}
			for _, r := range reports {
				fmt.Fprintf(out, "ingested %s (%d fragments) as %s\n", r.Filename, r.Stored, r.DocumentID)
			}
			continue
		}

		r, err := a.Ingestor.IngestFile(ctx, path, flagCategory)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "ingested %s (%d fragments) as %s\n", r.Filename, r.Stored, r.DocumentID)
	}
	return nil
}

func runIndexList(cmd *cobra.Command) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	docs, err := a.Store.Documents(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tFRAGMENTS\tADDED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			d.ID, d.Title, d.Category, d.Fragments, d.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runIndexRemove(cmd *cobra.Command, id string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	if err := a.Store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
	return nil
}

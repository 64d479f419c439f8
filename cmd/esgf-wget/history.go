// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/esgf-wget/internal/catalog"
	"github.com/pdiddy/esgf-wget/internal/script"
	"github.com/pdiddy/esgf-wget/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List scripts recorded in the run catalog",
	Long: `History lists the runs recorded in the SQLite catalog given by --catalog
or catalog.path, newest first. Use --run with a run ID to list the files
that run's script downloads.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")

	path := viper.GetString("catalog.path")
	if path == "" {
		return fmt.Errorf("history needs a catalog: set --catalog or catalog.path")
	}
	store, err := catalog.Open(types.CatalogConfig{Path: path})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID != "" {
		files, err := store.Files(ctx, runID)
		if err != nil {
			return err
		}
		return formatFiles(cmd.OutOrStdout(), files, jsonOutput)
	}

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	return formatRuns(cmd.OutOrStdout(), runs, jsonOutput)
}

func formatRuns(w io.Writer, runs []catalog.Run, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-36s  %-19s  %5s  %7s  %9s  %s\n",
		"Run", "Created", "Files", "Dropped", "Size", "Script")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %5d  %7d  %9s  %s\n",
			r.ID, r.CreatedAt.Local().Format(script.TimestampLayout),
			r.Files, r.Dropped, humanize.Bytes(r.TotalSize), r.ScriptPath)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
	return nil
}

func formatFiles(w io.Writer, files []types.FileRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}

	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.DatasetID, f.Filename, f.URL)
	}
	fmt.Fprintf(w, "\n%d files, %s\n", len(files), humanize.Bytes(types.TotalSize(files)))
	return nil
}

func init() {
	historyCmd.Flags().Bool("json", false, "output as JSON")
	historyCmd.Flags().Int("limit", 0, "maximum runs to list (0 = all)")
	historyCmd.Flags().String("run", "", "list the files of this run ID")

	rootCmd.AddCommand(historyCmd)
}

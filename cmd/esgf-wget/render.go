// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/esgf-wget/internal/catalog"
	"github.com/pdiddy/esgf-wget/internal/search"
	"github.com/pdiddy/esgf-wget/internal/wget"
	"github.com/pdiddy/esgf-wget/pkg/types"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write a script from a saved query without contacting the index",
	Long: `Render reads a query file written by --save-query and writes a new wget
script from its file records. No network request is made, so the script
reflects the index as it was when the query was saved.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	output, _ := cmd.Flags().GetString("output")

	return render(cmd.Context(), cmd.OutOrStdout(), from, types.ScriptConfig{
		OutputDir:    output,
		TemplatePath: viper.GetString("script.template"),
	}, types.CatalogConfig{Path: viper.GetString("catalog.path")})
}

func render(ctx context.Context, w io.Writer, from string, cfg types.ScriptConfig, cat types.CatalogConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := wget.CheckDir(cfg.OutputDir); err != nil {
		return reportNotDirectory(w, cfg.OutputDir, err)
	}

	qf, err := search.ReadQueryFile(from)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "loaded %d files for %d datasets from %s\n", len(qf.Files), len(qf.Datasets), from)

	g := &wget.Generator{Out: w}
	if cat.Path != "" {
		store, err := catalog.Open(cat)
		if err != nil {
			return err
		}
		defer store.Close()
		g.Catalog = store
	}

	_, err = g.RenderSaved(ctx, qf, cfg)
	return reportNotDirectory(w, cfg.OutputDir, err)
}

func init() {
	renderCmd.Flags().String("from", "", "query file written by --save-query")
	renderCmd.Flags().StringP("output", "o", ".", "directory the script is written to")
	renderCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(renderCmd)
}

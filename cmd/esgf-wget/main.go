// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the esgf-wget CLI. The root command
// queries the ESGF index for the files of the given datasets and writes a
// wget downloader script; subcommands re-render saved queries, list the run
// catalog, and print the version.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/esgf-wget/internal/catalog"
	"github.com/pdiddy/esgf-wget/internal/search"
	"github.com/pdiddy/esgf-wget/internal/secrets"
	"github.com/pdiddy/esgf-wget/internal/wget"
	"github.com/pdiddy/esgf-wget/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

var rootCmd = &cobra.Command{
	Use:   "esgf-wget",
	Short: "Generate wget scripts for ESGF datasets",
	Long: `esgf-wget looks up the files of one or more ESGF dataset identifiers in
the federated search index and writes a wget script that downloads them and
verifies their checksums.

The shard list is read from the index coordinator once per run. Each dataset
then costs two requests: a count probe and a fetch sized to that count. Files
without an HTTPServer URL are left out of the script.`,
	Example: `  esgf-wget -d CMIP6.CMIP.NCAR.CESM2.historical.r1i1p1f1.Amon.tas.gn.v20190308
  esgf-wget -d foo.bar.v1 -d foo.baz.v1 -o downloads/ --save-query query.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	RunE: runGenerate,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./esgf-wget.yaml or ~/.config/esgf-wget/config.yaml)")
	pf.String("template", "", "script template file (default: embedded template)")
	pf.String("catalog", "", "SQLite run catalog (default: none)")

	f := rootCmd.Flags()
	f.StringArrayP("dataset", "d", nil, "dataset identifier (repeatable)")
	f.StringP("output", "o", ".", "directory the script is written to")
	f.String("save-query", "", "also save the collected file records to this YAML file")
	f.Duration("timeout", 0, "HTTP request timeout (0 = none)")
	rootCmd.MarkFlagRequired("dataset")

	viper.BindPFlag("script.template", pf.Lookup("template"))
	viper.BindPFlag("catalog.path", pf.Lookup("catalog"))
	viper.BindPFlag("index.timeout", f.Lookup("timeout"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("esgf-wget")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "esgf-wget"))
		}
	}

	setConfigDefaults(viper.GetViper())

	viper.SetEnvPrefix("ESGF_WGET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setConfigDefaults(v *viper.Viper) {
	d := types.DefaultIndexConfig()
	v.SetDefault("index.coordinator_url", d.CoordinatorURL)
	v.SetDefault("index.select_url", d.SelectURL)
	v.SetDefault("index.shard_from", d.ShardFrom)
	v.SetDefault("index.shard_to", d.ShardTo)
	v.SetDefault("index.service_tag", d.ServiceTag)
	v.SetDefault("index.user_agent", d.UserAgent)
	v.SetDefault("index.timeout", d.Timeout)
	v.SetDefault("index.max_retries", d.MaxRetries)
}

// indexConfig builds the index settings from v and the loaded token.
func indexConfig(v *viper.Viper) types.IndexConfig {
	return types.IndexConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    v.GetDuration("index.timeout"),
			UserAgent:  v.GetString("index.user_agent"),
			MaxRetries: v.GetInt("index.max_retries"),
			Token:      loadedSecrets.Token(),
		},
		CoordinatorURL: v.GetString("index.coordinator_url"),
		SelectURL:      v.GetString("index.select_url"),
		ShardFrom:      v.GetString("index.shard_from"),
		ShardTo:        v.GetString("index.shard_to"),
		ServiceTag:     v.GetString("index.service_tag"),
	}
}

// generateOptions carries everything one generation run needs.
type generateOptions struct {
	Datasets  []string
	SaveQuery string
	Script    types.ScriptConfig
	Index     types.IndexConfig
	Catalog   types.CatalogConfig
}

func runGenerate(cmd *cobra.Command, args []string) error {
	datasets, _ := cmd.Flags().GetStringArray("dataset")
	output, _ := cmd.Flags().GetString("output")
	saveQuery, _ := cmd.Flags().GetString("save-query")

	return generate(cmd.Context(), cmd.OutOrStdout(), generateOptions{
		Datasets:  datasets,
		SaveQuery: saveQuery,
		Script: types.ScriptConfig{
			OutputDir:    output,
			TemplatePath: viper.GetString("script.template"),
		},
		Index:   indexConfig(viper.GetViper()),
		Catalog: types.CatalogConfig{Path: viper.GetString("catalog.path")},
	})
}

// generate runs one generation. An invalid output directory is reported on
// w and is not an error.
func generate(ctx context.Context, w io.Writer, opts generateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := wget.CheckDir(opts.Script.OutputDir); err != nil {
		return reportNotDirectory(w, opts.Script.OutputDir, err)
	}

	g := &wget.Generator{
		Index: search.NewClient(nil, opts.Index, w),
		Out:   w,
	}
	if opts.Catalog.Path != "" {
		store, err := catalog.Open(opts.Catalog)
		if err != nil {
			return err
		}
		defer store.Close()
		g.Catalog = store
	}

	_, err := g.Generate(ctx, wget.Options{
		Datasets:  opts.Datasets,
		Script:    opts.Script,
		SaveQuery: opts.SaveQuery,
	})
	return reportNotDirectory(w, opts.Script.OutputDir, err)
}

// reportNotDirectory converts wget.ErrNotDirectory into the exit-0 message.
// Other errors pass through.
func reportNotDirectory(w io.Writer, dir string, err error) error {
	if errors.Is(err, wget.ErrNotDirectory) {
		fmt.Fprintf(w, "%s is not a directory. Exiting.\n", dir)
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

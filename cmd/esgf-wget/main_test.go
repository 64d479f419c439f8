// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/esgf-wget/internal/catalog"
	"github.com/pdiddy/esgf-wget/internal/esgftest"
	"github.com/pdiddy/esgf-wget/pkg/types"
)

func testServer(t *testing.T) *esgftest.Server {
	t.Helper()
	ts := esgftest.NewServer("n1:8983/solr/datasets", map[string][]esgftest.Doc{
		"foo.bar.v1": {
			{
				Title: "a.nc", Checksum: "c1", ChecksumType: "MD5",
				URLs: []string{esgftest.HTTPURL("http://data.example.org/a.nc")},
				Size: 2048,
			},
			{
				Title: "b.nc", Checksum: "c2", ChecksumType: "MD5",
				URLs: []string{esgftest.OpenDAPURL("http://data.example.org/b.nc")},
			},
		},
	})
	t.Cleanup(ts.Close)
	return ts
}

func scripts(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "wget-*.sh"))
	require.NoError(t, err)
	return matches
}

func TestGenerate_NotDirectory(t *testing.T) {
	ts := testServer(t)
	base := t.TempDir()
	missing := filepath.Join(base, "missing")
	catalogPath := filepath.Join(base, "cat", "catalog.db")

	var out bytes.Buffer
	err := generate(context.Background(), &out, generateOptions{
		Datasets: []string{"foo.bar.v1"},
		Script:   types.ScriptConfig{OutputDir: missing},
		Index:    ts.IndexConfig(),
		Catalog:  types.CatalogConfig{Path: catalogPath},
	})
	require.NoError(t, err)
	assert.Equal(t, missing+" is not a directory. Exiting.\n", out.String())
	assert.Empty(t, ts.Requests())
	assert.NoFileExists(t, catalogPath)
}

func TestGenerate_WritesScriptAndCatalog(t *testing.T) {
	ts := testServer(t)
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.db")
	queryPath := filepath.Join(dir, "query.yaml")

	var out bytes.Buffer
	err := generate(context.Background(), &out, generateOptions{
		Datasets:  []string{"foo.bar.v1"},
		SaveQuery: queryPath,
		Script:    types.ScriptConfig{OutputDir: dir},
		Index:     ts.IndexConfig(),
		Catalog:   types.CatalogConfig{Path: catalogPath},
	})
	require.NoError(t, err)

	written := scripts(t, dir)
	require.Len(t, written, 1)
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\ndownload '"))
	assert.Contains(t, string(data), "'http://data.example.org/a.nc'")
	assert.FileExists(t, queryPath)
	assert.Len(t, ts.Requests(), 3)

	store, err := catalog.Open(types.CatalogConfig{Path: catalogPath})
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, written[0], runs[0].ScriptPath)
	assert.Equal(t, 1, runs[0].Dropped)
}

func TestGenerate_IndexErrorPropagates(t *testing.T) {
	ts := testServer(t)
	ts.SetStatus(503)
	dir := t.TempDir()

	err := generate(context.Background(), nil, generateOptions{
		Datasets: []string{"foo.bar.v1"},
		Script:   types.ScriptConfig{OutputDir: dir},
		Index:    ts.IndexConfig(),
	})
	assert.ErrorContains(t, err, "503")
	assert.Empty(t, scripts(t, dir))
}

func TestRender_FromSavedQuery(t *testing.T) {
	ts := testServer(t)
	dir := t.TempDir()
	queryPath := filepath.Join(dir, "query.yaml")

	require.NoError(t, generate(context.Background(), nil, generateOptions{
		Datasets:  []string{"foo.bar.v1"},
		SaveQuery: queryPath,
		Script:    types.ScriptConfig{OutputDir: dir},
		Index:     ts.IndexConfig(),
	}))
	before := len(ts.Requests())

	outDir := t.TempDir()
	var out bytes.Buffer
	require.NoError(t, render(context.Background(), &out, queryPath,
		types.ScriptConfig{OutputDir: outDir}, types.CatalogConfig{}))

	assert.Len(t, ts.Requests(), before)
	assert.Len(t, scripts(t, outDir), 1)
	assert.Contains(t, out.String(), "loaded 1 files for 1 datasets")
}

func TestRender_NotDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	var out bytes.Buffer
	require.NoError(t, render(context.Background(), &out, "unused.yaml",
		types.ScriptConfig{OutputDir: missing}, types.CatalogConfig{}))
	assert.Equal(t, missing+" is not a directory. Exiting.\n", out.String())
}

func TestRender_MissingQueryFile(t *testing.T) {
	err := render(context.Background(), nil, filepath.Join(t.TempDir(), "nope.yaml"),
		types.ScriptConfig{OutputDir: t.TempDir()}, types.CatalogConfig{})
	assert.ErrorContains(t, err, "reading query file")
}

func TestIndexConfigFromViper(t *testing.T) {
	v := viper.New()
	setConfigDefaults(v)

	cfg := indexConfig(v)
	assert.Equal(t, types.DefaultCoordinatorURL, cfg.CoordinatorURL)
	assert.Equal(t, types.DefaultSelectURL, cfg.SelectURL)
	assert.Equal(t, types.DefaultServiceTag, cfg.ServiceTag)
	assert.Zero(t, cfg.Timeout)
	assert.Zero(t, cfg.MaxRetries)

	path := filepath.Join(t.TempDir(), "esgf-wget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`index:
  select_url: http://localhost:8983/solr/files/select
  service_tag: OPENDAP
  timeout: 30s
  max_retries: 3
`), 0o644))
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg = indexConfig(v)
	assert.Equal(t, "http://localhost:8983/solr/files/select", cfg.SelectURL)
	assert.Equal(t, types.DefaultCoordinatorURL, cfg.CoordinatorURL)
	assert.Equal(t, "OPENDAP", cfg.ServiceTag)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestFormatRuns(t *testing.T) {
	runs := []catalog.Run{{
		ID: "run-1", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ScriptPath: "/tmp/wget-1.sh", Files: 3, Dropped: 1, TotalSize: 5000,
	}}

	var text bytes.Buffer
	require.NoError(t, formatRuns(&text, runs, false))
	assert.Contains(t, text.String(), "run-1")
	assert.Contains(t, text.String(), "5.0 kB")
	assert.Contains(t, text.String(), "/tmp/wget-1.sh")
	assert.Contains(t, text.String(), "1 runs")

	var js bytes.Buffer
	require.NoError(t, formatRuns(&js, runs, true))
	var decoded []catalog.Run
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "run-1", decoded[0].ID)

	var empty bytes.Buffer
	require.NoError(t, formatRuns(&empty, nil, false))
	assert.Equal(t, "No runs recorded.\n", empty.String())
}

func TestFormatFiles(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, formatFiles(&out, []types.FileRecord{
		{DatasetID: "d.v1", Filename: "a.nc", URL: "http://x/a.nc", Size: 1000},
	}, false))
	assert.Contains(t, out.String(), "d.v1\ta.nc\thttp://x/a.nc\n")
	assert.Contains(t, out.String(), "1 files, 1.0 kB")
}

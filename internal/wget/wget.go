// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wget drives a script generation run: it validates the output
// directory, resolves the index shards, collects file records for each
// dataset, renders the downloader script, and writes it to disk.
package wget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/esgf-wget/internal/catalog"
	"github.com/pdiddy/esgf-wget/internal/script"
	"github.com/pdiddy/esgf-wget/internal/search"
	"github.com/pdiddy/esgf-wget/pkg/types"
)

// ErrNotDirectory is returned when the output directory does not exist or
// is not a directory. No network request has been made when it is returned.
var ErrNotDirectory = errors.New("not a directory")

// Recorder stores a history entry for each written script.
type Recorder interface {
	Record(ctx context.Context, run catalog.Run, files []types.FileRecord) error
}

// Options holds the inputs of one generation run.
type Options struct {
	Datasets []string
	Script   types.ScriptConfig

	// SaveQuery, when set, is a path the collected records are saved to
	// as a YAML query file.
	SaveQuery string
}

// Result describes a completed run.
type Result struct {
	RunID      string
	ScriptPath string
	Shards     string
	Search     search.Result
}

// Generator runs generations against an index.
type Generator struct {
	Index search.Index

	// Catalog is optional.
	Catalog Recorder

	// Out receives progress lines. Nil discards them.
	Out io.Writer

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// CheckDir verifies that dir exists and is a directory. An empty dir means
// the working directory.
func CheckDir(dir string) error {
	if dir == "" {
		dir = "."
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	return nil
}

// Generate validates the output directory and then resolves shards once,
// collects records for all datasets, and writes the script. Any error
// before the final write leaves no script behind.
func (g *Generator) Generate(ctx context.Context, opts Options) (Result, error) {
	if len(opts.Datasets) == 0 {
		return Result{}, fmt.Errorf("at least one dataset is required")
	}
	if err := CheckDir(opts.Script.OutputDir); err != nil {
		return Result{}, err
	}
	renderer, err := script.Load(opts.Script.TemplatePath)
	if err != nil {
		return Result{}, err
	}

	out := g.out()
	fmt.Fprintln(out, "resolving shards")
	shards, err := g.Index.ResolveShards(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("resolving shards: %w", err)
	}

	res, err := search.CollectFiles(ctx, g.Index, opts.Datasets, shards, out)
	if err != nil {
		return Result{}, err
	}

	now := g.now()
	if opts.SaveQuery != "" {
		if err := search.WriteQueryFile(opts.SaveQuery, opts.Datasets, shards, res, now); err != nil {
			return Result{}, fmt.Errorf("saving query: %w", err)
		}
		fmt.Fprintf(out, "saved query to %s\n", opts.SaveQuery)
	}

	result, err := g.write(ctx, renderer, opts.Datasets, res, opts.Script.OutputDir, now)
	if err != nil {
		return Result{}, err
	}
	result.Shards = shards
	return result, nil
}

// RenderSaved writes a script for a previously saved query file without
// contacting the index.
func (g *Generator) RenderSaved(ctx context.Context, qf *search.QueryFile, cfg types.ScriptConfig) (Result, error) {
	if err := CheckDir(cfg.OutputDir); err != nil {
		return Result{}, err
	}
	renderer, err := script.Load(cfg.TemplatePath)
	if err != nil {
		return Result{}, err
	}

	result, err := g.write(ctx, renderer, qf.Datasets, qf.Result(), cfg.OutputDir, g.now())
	if err != nil {
		return Result{}, err
	}
	result.Shards = qf.Shards
	return result, nil
}

func (g *Generator) write(ctx context.Context, r *script.Renderer, datasets []string, res search.Result, dir string, now time.Time) (Result, error) {
	if dir == "" {
		dir = "."
	}
	runID := g.newID()

	var buf bytes.Buffer
	if err := r.Render(&buf, script.NewData(datasets, res.Files, now, runID)); err != nil {
		return Result{}, err
	}
	path, err := script.Write(dir, now, buf.Bytes())
	if err != nil {
		return Result{}, err
	}

	out := g.out()
	fmt.Fprintf(out, "wrote %s (%d files)\n", path, len(res.Files))

	if g.Catalog != nil {
		run := catalog.Run{
			ID:         runID,
			CreatedAt:  now,
			ScriptPath: path,
			Datasets:   datasets,
			Files:      len(res.Files),
			Dropped:    res.Dropped,
			TotalSize:  types.TotalSize(res.Files),
		}
		if err := g.Catalog.Record(ctx, run, res.Files); err != nil {
			fmt.Fprintf(out, "warning: catalog record failed: %v\n", err)
		}
	}

	return Result{RunID: runID, ScriptPath: path, Search: res}, nil
}

func (g *Generator) out() io.Writer {
	if g.Out == nil {
		return io.Discard
	}
	return g.Out
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Generator) newID() string {
	if g.NewID == nil {
		return uuid.NewString()
	}
	return g.NewID()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package script renders the wget downloader script from a text template
// and writes it to a timestamped file.
package script

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

// TimestampLayout formats the generation time in the script header.
const TimestampLayout = "2006/01/02 15:04:05"

// filenameLayout names the script file after the generation time.
const filenameLayout = "wget-20060102150405.sh"

//go:embed wget-template.sh
var defaultTemplate string

var funcs = template.FuncMap{
	"quote":    shellQuote,
	"comment":  commentText,
	"lower":    strings.ToLower,
	"humanize": humanize.Bytes,
}

// commentEscaper keeps a value on one comment line.
var commentEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// Data is the input to a script template.
type Data struct {
	Timestamp string
	RunID     string
	Datasets  []string
	Files     []types.FileRecord
	TotalSize string
}

// NewData builds template data for the given generation time.
func NewData(datasets []string, files []types.FileRecord, t time.Time, runID string) Data {
	return Data{
		Timestamp: t.Format(TimestampLayout),
		RunID:     runID,
		Datasets:  datasets,
		Files:     files,
		TotalSize: humanize.Bytes(types.TotalSize(files)),
	}
}

// Renderer executes a parsed script template.
type Renderer struct {
	tmpl *template.Template
}

// New returns a Renderer for the embedded wget template.
func New() *Renderer {
	return &Renderer{tmpl: template.Must(template.New("wget").Funcs(funcs).Parse(defaultTemplate))}
}

// Load parses the template at path. An empty path selects the embedded
// template.
func Load(path string) (*Renderer, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", path, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the script for d to w.
func (r *Renderer) Render(w io.Writer, d Data) error {
	if err := r.tmpl.Execute(w, d); err != nil {
		return fmt.Errorf("rendering script: %w", err)
	}
	return nil
}

// Filename returns the script file name for generation time t.
func Filename(t time.Time) string {
	return t.Format(filenameLayout)
}

// Write stores content as an executable script named after t inside dir and
// returns its path. The content goes to a temp file that is renamed into
// place, so a failed write leaves no script behind.
func Write(dir string, t time.Time, content []byte) (string, error) {
	path := filepath.Join(dir, Filename(t))

	tmp, err := os.CreateTemp(dir, ".wget-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing script: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o755); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("setting script mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming script: %w", err)
	}
	return path, nil
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// commentText escapes line breaks in s so it cannot end a shell comment.
func commentText(s string) string {
	return commentEscaper.Replace(s)
}

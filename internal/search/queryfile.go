// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

// QueryFile is the on-disk form of a collection run. A saved query can be
// rendered into a script again later without contacting the index.
type QueryFile struct {
	Datasets []string           `yaml:"datasets"`
	Shards   string             `yaml:"shards,omitempty"`
	Files    []types.FileRecord `yaml:"files"`
	Summary  QuerySummary       `yaml:"summary"`
}

// QuerySummary stores result statistics and the collection time.
type QuerySummary struct {
	Total     int       `yaml:"total"`
	Documents int       `yaml:"documents"`
	Dropped   int       `yaml:"dropped"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the datasets, shard list, and collected records to a
// YAML file at path.
func WriteQueryFile(path string, datasets []string, shards string, res Result, ts time.Time) error {
	qf := QueryFile{
		Datasets: datasets,
		Shards:   shards,
		Files:    res.Files,
		Summary: QuerySummary{
			Total:     len(res.Files),
			Documents: res.Documents,
			Dropped:   res.Dropped,
			Timestamp: ts,
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if len(qf.Datasets) == 0 {
		return nil, fmt.Errorf("query file %s lists no datasets", path)
	}
	return &qf, nil
}

// Result converts the saved records back into a collection result.
func (qf *QueryFile) Result() Result {
	return Result{
		Files:     qf.Files,
		Documents: qf.Summary.Documents,
		Dropped:   qf.Summary.Dropped,
	}
}

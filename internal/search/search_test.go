// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

// fakeIndex serves canned counts and records and records its calls.
type fakeIndex struct {
	counts  map[string]int
	records map[string][]types.FileRecord
	failOn  string
	calls   []string
	rows    []int
}

func (f *fakeIndex) ResolveShards(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "shards")
	return "s", nil
}

func (f *fakeIndex) Count(ctx context.Context, datasetID, shards string) (int, error) {
	f.calls = append(f.calls, "count:"+datasetID)
	if datasetID == f.failOn {
		return 0, errors.New("boom")
	}
	return f.counts[datasetID], nil
}

func (f *fakeIndex) Query(ctx context.Context, datasetID, shards string, rows int) ([]types.FileRecord, error) {
	f.calls = append(f.calls, "query:"+datasetID)
	f.rows = append(f.rows, rows)
	return f.records[datasetID], nil
}

func TestCollectFiles(t *testing.T) {
	idx := &fakeIndex{
		counts: map[string]int{"a.v1": 3, "b.v1": 1},
		records: map[string][]types.FileRecord{
			"a.v1": {{Filename: "a1.nc"}, {Filename: "a2.nc"}},
			"b.v1": {{Filename: "b1.nc"}},
		},
	}

	var log bytes.Buffer
	res, err := CollectFiles(context.Background(), idx, []string{"b.v1", "a.v1"}, "s", &log)
	require.NoError(t, err)

	assert.Equal(t, []string{"count:b.v1", "query:b.v1", "count:a.v1", "query:a.v1"}, idx.calls)
	assert.Equal(t, []int{1, 3}, idx.rows)

	var names []string
	for _, f := range res.Files {
		names = append(names, f.Filename)
	}
	assert.Equal(t, []string{"b1.nc", "a1.nc", "a2.nc"}, names)
	assert.Equal(t, 4, res.Documents)
	assert.Equal(t, 1, res.Dropped)
	assert.Contains(t, log.String(), "dataset a.v1: 2 files")
}

func TestCollectFiles_ErrorAborts(t *testing.T) {
	idx := &fakeIndex{
		counts:  map[string]int{"a.v1": 1},
		records: map[string][]types.FileRecord{"a.v1": {{Filename: "a1.nc"}}},
		failOn:  "bad.v1",
	}

	res, err := CollectFiles(context.Background(), idx, []string{"a.v1", "bad.v1", "c.v1"}, "s", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counting files for bad.v1")
	assert.Empty(t, res.Files)
	assert.NotContains(t, idx.calls, "count:c.v1")
}

func TestCollectFiles_NoDatasets(t *testing.T) {
	idx := &fakeIndex{}
	res, err := CollectFiles(context.Background(), idx, nil, "s", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, idx.calls)
}

func TestCollectFiles_DroppedIncludesCountFetchGap(t *testing.T) {
	idx := &fakeIndex{
		counts: map[string]int{"a.v1": 4, "b.v1": 1},
		records: map[string][]types.FileRecord{
			"a.v1": {{Filename: "a1.nc"}},
			"b.v1": {{Filename: "b1.nc"}},
		},
	}

	res, err := CollectFiles(context.Background(), idx, []string{"a.v1", "b.v1"}, "s", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Documents)
	assert.Equal(t, 3, res.Dropped)
	assert.Len(t, res.Files, 2)
}

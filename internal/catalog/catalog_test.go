// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	s, err := Open(types.CatalogConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(types.CatalogConfig{})
	assert.ErrorContains(t, err, "catalog path is empty")
}

func TestRecordAndList(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	files := []types.FileRecord{
		{DatasetID: "a.v1", Filename: "a1.nc", URL: "http://d/a1.nc", Checksum: "x", ChecksumType: "SHA256", Size: 10},
		{DatasetID: "a.v1", Filename: "a2.nc", URL: "http://d/a2.nc", Checksum: "y", ChecksumType: "SHA256", Size: 20},
	}
	require.NoError(t, s.Record(ctx, Run{
		ID: "run-old", CreatedAt: t0, ScriptPath: "/tmp/wget-1.sh",
		Datasets: []string{"a.v1"}, Files: 2, Dropped: 1, TotalSize: 30,
	}, files))
	require.NoError(t, s.Record(ctx, Run{
		ID: "run-new", CreatedAt: t0.Add(time.Hour), ScriptPath: "/tmp/wget-2.sh",
		Datasets: []string{"b.v1", "c.v1"},
	}, nil))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, []string{"b.v1", "c.v1"}, runs[0].Datasets)

	old := runs[1]
	assert.Equal(t, "run-old", old.ID)
	assert.True(t, t0.Equal(old.CreatedAt))
	assert.Equal(t, "/tmp/wget-1.sh", old.ScriptPath)
	assert.Equal(t, 2, old.Files)
	assert.Equal(t, 1, old.Dropped)
	assert.Equal(t, uint64(30), old.TotalSize)

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-new", limited[0].ID)

	got, err := s.Files(ctx, "run-old")
	require.NoError(t, err)
	assert.Equal(t, files, got)

	none, err := s.Files(ctx, "run-new")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecord_DuplicateIDRollsBack(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	run := Run{ID: "dup", CreatedAt: time.Now(), ScriptPath: "x", Datasets: []string{"a"}}
	require.NoError(t, s.Record(ctx, run, []types.FileRecord{{Filename: "f1", URL: "u"}}))
	assert.Error(t, s.Record(ctx, run, []types.FileRecord{{Filename: "f2", URL: "u"}}))

	files, err := s.Files(ctx, "dup")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f1", files[0].Filename)
}

func TestReopenKeepsHistory(t *testing.T) {
	s, path := testStore(t)
	require.NoError(t, s.Record(context.Background(), Run{ID: "r1", CreatedAt: time.Now(), ScriptPath: "x"}, nil))
	require.NoError(t, s.Close())

	s2, err := Open(types.CatalogConfig{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.Runs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
}

func TestRuns_CorruptDatasetsColumn(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Run{ID: "r1", CreatedAt: time.Now(), ScriptPath: "x", Datasets: []string{"a.v1"}}, nil))
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET datasets = 'not json' WHERE id = 'r1'`)
	require.NoError(t, err)

	_, err = s.Runs(ctx, 0)
	assert.ErrorContains(t, err, "decoding datasets of run r1")
}

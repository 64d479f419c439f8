// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the ESGF federated Solr index for the files of a
// set of datasets. A run resolves the shard list once, then issues a count
// probe and a sized fetch per dataset against all shards.
package search

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

// Index is the sharded file index. Client implements it against a live
// ESGF node; tests substitute fakes.
type Index interface {
	// ResolveShards returns the shard descriptor for the files core.
	ResolveShards(ctx context.Context) (string, error)

	// Count returns the number of file documents for datasetID.
	Count(ctx context.Context, datasetID, shards string) (int, error)

	// Query fetches up to rows file documents for datasetID and returns one
	// record per document that carries a URL with the accepted service tag.
	Query(ctx context.Context, datasetID, shards string, rows int) ([]types.FileRecord, error)
}

// Result holds the records collected for a dataset list.
type Result struct {
	// Files are the records in dataset input order, then index order.
	Files []types.FileRecord

	// Documents is the sum of the per-dataset counts.
	Documents int

	// Dropped is the number of counted documents with no record: those
	// without a URL carrying the accepted service tag, plus any that left
	// the index between the count probe and the fetch. Index.Query does
	// not report which, so the two are not told apart.
	Dropped int
}

// CollectFiles runs the count-then-fetch sequence for each dataset in order
// and concatenates the records. Any error aborts the whole collection; no
// partial result is returned. Progress lines are written to w, which may be
// nil.
func CollectFiles(ctx context.Context, idx Index, datasets []string, shards string, w io.Writer) (Result, error) {
	if w == nil {
		w = io.Discard
	}

	var res Result
	for _, id := range datasets {
		n, err := idx.Count(ctx, id, shards)
		if err != nil {
			return Result{}, fmt.Errorf("counting files for %s: %w", id, err)
		}

		records, err := idx.Query(ctx, id, shards, n)
		if err != nil {
			return Result{}, fmt.Errorf("querying files for %s: %w", id, err)
		}

		fmt.Fprintf(w, "dataset %s: %d files\n", id, len(records))

		res.Files = append(res.Files, records...)
		res.Documents += n
		if n > len(records) {
			res.Dropped += n - len(records)
		}
	}
	return res, nil
}

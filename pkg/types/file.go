// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for esgf-wget.
// FileRecord is produced by the index client and consumed by the script
// renderer, the saved query files, and the run catalog.
package types

// FileRecord describes one downloadable file selected from the index.
// Records are never modified after the index client creates them.
type FileRecord struct {
	// DatasetID is the dataset identifier the file was queried for.
	DatasetID string `json:"dataset_id" yaml:"dataset_id"`

	// Filename is the file title as reported by the index.
	Filename string `json:"filename" yaml:"filename"`

	// URL is the single download URL chosen by service tag.
	URL string `json:"url" yaml:"url"`

	// Checksum is the first value of the multivalued checksum field.
	Checksum string `json:"checksum" yaml:"checksum"`

	// ChecksumType names the checksum algorithm (e.g. "SHA256", "MD5").
	ChecksumType string `json:"checksum_type" yaml:"checksum_type"`

	// Size is the file size in bytes, or 0 when the index omits it.
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`
}

// TotalSize sums the sizes of records.
func TotalSize(records []FileRecord) uint64 {
	var total uint64
	for _, r := range records {
		if r.Size > 0 {
			total += uint64(r.Size)
		}
	}
	return total
}

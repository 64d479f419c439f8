// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/esgf-wget/internal/httputil"
	"github.com/pdiddy/esgf-wget/pkg/types"
)

// ErrMissingShards is returned when the coordinator response has no shard list.
var ErrMissingShards = errors.New("coordinator response has no shard list")

// Client queries an ESGF index node over HTTP.
type Client struct {
	HTTP   *http.Client
	Config types.IndexConfig

	// Log receives rate-limit notices. Nil discards them.
	Log io.Writer
}

// NewClient returns a Client for cfg. A nil httpClient gets a client with
// cfg.Timeout (zero means requests never time out).
func NewClient(httpClient *http.Client, cfg types.IndexConfig, w io.Writer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.ServiceTag == "" {
		cfg.ServiceTag = types.DefaultServiceTag
	}
	return &Client{HTTP: httpClient, Config: cfg, Log: w}
}

// ResolveShards asks the coordinator for its distributed-search shard list
// and rewrites it from the datasets core to the files core.
func (c *Client) ResolveShards(ctx context.Context) (string, error) {
	reqURL, err := withParams(c.Config.CoordinatorURL, url.Values{
		"limit":  {"0"},
		"format": {"application/solr+json"},
	})
	if err != nil {
		return "", fmt.Errorf("coordinator URL: %w", err)
	}

	var cr coordinatorResponse
	if err := c.getJSON(ctx, reqURL, &cr); err != nil {
		return "", fmt.Errorf("coordinator request: %w", err)
	}

	shards := cr.ResponseHeader.Params.Shards
	if shards == "" {
		return "", ErrMissingShards
	}
	if c.Config.ShardFrom != "" {
		shards = strings.ReplaceAll(shards, c.Config.ShardFrom, c.Config.ShardTo)
	}
	return shards, nil
}

// Count issues a zero-row query and returns numFound.
func (c *Client) Count(ctx context.Context, datasetID, shards string) (int, error) {
	sr, err := c.selectFiles(ctx, datasetID, shards, 0)
	if err != nil {
		return 0, err
	}
	return sr.Response.NumFound, nil
}

// Query fetches rows documents and converts them to records. Documents
// without a URL tagged with the configured service are skipped.
func (c *Client) Query(ctx context.Context, datasetID, shards string, rows int) ([]types.FileRecord, error) {
	sr, err := c.selectFiles(ctx, datasetID, shards, rows)
	if err != nil {
		return nil, err
	}

	var records []types.FileRecord
	for _, doc := range sr.Response.Docs {
		u, ok := SelectURL(doc.URL, c.Config.ServiceTag)
		if !ok {
			continue
		}
		records = append(records, types.FileRecord{
			DatasetID:    datasetID,
			Filename:     doc.Title.First(),
			URL:          u,
			Checksum:     doc.Checksum.First(),
			ChecksumType: doc.ChecksumType.First(),
			Size:         doc.Size,
		})
	}
	return records, nil
}

// selectFiles runs one select request against the files core.
func (c *Client) selectFiles(ctx context.Context, datasetID, shards string, rows int) (*selectResponse, error) {
	reqURL, err := withParams(c.Config.SelectURL, selectParams(datasetID, shards, rows))
	if err != nil {
		return nil, fmt.Errorf("select URL: %w", err)
	}

	var sr selectResponse
	if err := c.getJSON(ctx, reqURL, &sr); err != nil {
		return nil, fmt.Errorf("select request: %w", err)
	}
	if sr.Response == nil {
		return nil, fmt.Errorf("select response has no response body")
	}
	return &sr, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, v any) error {
	resp, err := httputil.GetJSON(ctx, c.HTTP, reqURL, c.Config.UserAgent, c.Config.Token, c.Config.MaxRetries, c.Log)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// selectParams builds the files-core query for one dataset.
func selectParams(datasetID, shards string, rows int) url.Values {
	params := url.Values{
		"q":     {"*:*"},
		"wt":    {"json"},
		"facet": {"true"},
		"fq":    {"type:File", "dataset_id:" + datasetID},
		"sort":  {"id asc"},
		"rows":  {strconv.Itoa(rows)},
	}
	if shards != "" {
		params.Set("shards", shards)
	}
	return params
}

// withParams merges params into the query string of base.
func withParams(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ESGF JSON structures.
type coordinatorResponse struct {
	ResponseHeader struct {
		Params struct {
			Shards string `json:"shards"`
		} `json:"params"`
	} `json:"responseHeader"`
}

type selectResponse struct {
	Response *selectBody `json:"response"`
}

type selectBody struct {
	NumFound int       `json:"numFound"`
	Docs     []fileDoc `json:"docs"`
}

type fileDoc struct {
	Title        multiValue `json:"title"`
	Checksum     multiValue `json:"checksum"`
	ChecksumType multiValue `json:"checksum_type"`
	URL          multiValue `json:"url"`
	Size         int64      `json:"size"`
}

// multiValue decodes a Solr field that may be stored single- or multivalued.
type multiValue []string

func (m *multiValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var vs []string
		if err := json.Unmarshal(data, &vs); err != nil {
			return err
		}
		*m = vs
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = multiValue{s}
	return nil
}

// First returns the first value, or "" when there is none.
func (m multiValue) First() string {
	if len(m) == 0 {
		return ""
	}
	return m[0]
}

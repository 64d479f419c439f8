// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package esgftest provides an in-process fake ESGF index node for tests.
// It serves the coordinator search endpoint and the files-core select
// endpoint and records every request it receives.
package esgftest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

// Endpoint paths served by the fake node.
const (
	// CoordinatorPath answers the shard-list request.
	CoordinatorPath = "/esg-search/search/"

	// SelectPath answers count and fetch queries against the files core.
	SelectPath = "/solr/files/select"
)

// Doc is a file document served by the fake select endpoint.
type Doc struct {
	Title        string
	Checksum     string
	ChecksumType string
	URLs         []string
	Size         int64
}

// Request is one request seen by the server.
type Request struct {
	Path  string
	Query url.Values
}

// Rows returns the rows parameter, or -1 when absent or malformed.
func (r Request) Rows() int {
	n, err := strconv.Atoi(r.Query.Get("rows"))
	if err != nil {
		return -1
	}
	return n
}

// Server is a fake ESGF node.
type Server struct {
	*httptest.Server

	// Shards is returned by the coordinator. Empty omits the field.
	Shards string

	// Datasets maps dataset_id to its documents in index order.
	Datasets map[string][]Doc

	mu       sync.Mutex
	status   int
	requests []Request
}

// NewServer starts a fake node. Callers must Close it.
func NewServer(shards string, datasets map[string][]Doc) *Server {
	s := &Server{Shards: shards, Datasets: datasets}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// CoordinatorURL returns the coordinator endpoint URL.
func (s *Server) CoordinatorURL() string { return s.URL + CoordinatorPath }

// SelectURL returns the files-core select endpoint URL.
func (s *Server) SelectURL() string { return s.URL + SelectPath }

// IndexConfig returns an index configuration pointing at the server.
func (s *Server) IndexConfig() types.IndexConfig {
	cfg := types.DefaultIndexConfig()
	cfg.CoordinatorURL = s.CoordinatorURL()
	cfg.SelectURL = s.SelectURL()
	return cfg
}

// SetStatus makes every later request fail with code. Zero restores
// normal responses.
func (s *Server) SetStatus(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

// Requests returns a copy of all requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// SelectRequests returns the requests made to the select endpoint.
func (s *Server) SelectRequests() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == SelectPath {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: r.URL.Path, Query: r.URL.Query()})
	status := s.status
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case CoordinatorPath:
		params := map[string]any{"limit": "0"}
		if s.Shards != "" {
			params["shards"] = s.Shards
		}
		json.NewEncoder(w).Encode(map[string]any{
			"responseHeader": map[string]any{"status": 0, "params": params},
		})
	case SelectPath:
		s.handleSelect(w, r.URL.Query())
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, q url.Values) {
	var datasetID string
	for _, fq := range q["fq"] {
		if id, ok := strings.CutPrefix(fq, "dataset_id:"); ok {
			datasetID = id
		}
	}
	docs := s.Datasets[datasetID]

	rows, err := strconv.Atoi(q.Get("rows"))
	if err != nil || rows < 0 {
		rows = 10
	}
	if rows > len(docs) {
		rows = len(docs)
	}

	out := make([]map[string]any, 0, rows)
	for _, d := range docs[:rows] {
		m := map[string]any{
			"title":         d.Title,
			"dataset_id":    datasetID,
			"type":          "File",
			"checksum":      []string{d.Checksum},
			"checksum_type": []string{d.ChecksumType},
			"url":           d.URLs,
		}
		if d.Size > 0 {
			m["size"] = d.Size
		}
		out = append(out, m)
	}

	json.NewEncoder(w).Encode(map[string]any{
		"responseHeader": map[string]any{"status": 0},
		"response": map[string]any{
			"numFound": len(docs),
			"start":    0,
			"docs":     out,
		},
	})
}

// HTTPURL returns a url field value tagged HTTPServer.
func HTTPURL(u string) string { return u + "|application/netcdf|HTTPServer" }

// OpenDAPURL returns a url field value tagged OPENDAP.
func OpenDAPURL(u string) string { return u + ".html|application/opendap-html|OPENDAP" }

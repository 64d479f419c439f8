// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import "strings"

// URLEntry is one value of the multivalued url field: "<url>|<mime>|<service>".
type URLEntry struct {
	URL      string
	MimeType string
	Service  string
}

// ParseURLEntry splits a url field value on '|'. It reports false when the
// value has fewer than three fields.
func ParseURLEntry(s string) (URLEntry, bool) {
	parts := strings.Split(s, "|")
	if len(parts) < 3 {
		return URLEntry{}, false
	}
	return URLEntry{URL: parts[0], MimeType: parts[1], Service: parts[2]}, true
}

// SelectURL returns the URL of the first entry whose service field equals
// tag exactly. Later matches are ignored.
func SelectURL(entries []string, tag string) (string, bool) {
	for _, raw := range entries {
		e, ok := ParseURLEntry(raw)
		if !ok {
			continue
		}
		if e.Service == tag {
			return e.URL, true
		}
	}
	return "", false
}

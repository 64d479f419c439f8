package types

import "time"

// Defaults for the ESGF index. The coordinator is a search endpoint whose
// response header carries the shard list for the datasets core.
const (
	DefaultCoordinatorURL = "https://esgf-node.llnl.gov/esg-search/search/"
	DefaultSelectURL      = "https://esgf-node.llnl.gov/solr/files/select"
	DefaultShardFrom      = "solr/datasets"
	DefaultShardTo        = "solr/files"
	DefaultServiceTag     = "HTTPServer"
	DefaultUserAgent      = "esgf-wget/0.1"
)

// HTTPConfig holds shared HTTP settings used for index requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retries on HTTP 429. Zero disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Token, when set, is sent as a bearer token.
	Token string `json:"-" yaml:"-"`
}

// IndexConfig holds settings for the shard resolver and the file query client.
type IndexConfig struct {
	HTTPConfig `yaml:",inline"`

	// CoordinatorURL is the search endpoint queried for the shard list.
	CoordinatorURL string `json:"coordinator_url" yaml:"coordinator_url"`

	// SelectURL is the Solr select endpoint of the files core.
	SelectURL string `json:"select_url" yaml:"select_url"`

	// ShardFrom is the path segment replaced in the shard list.
	ShardFrom string `json:"shard_from" yaml:"shard_from"`

	// ShardTo replaces ShardFrom so the shards target the files core.
	ShardTo string `json:"shard_to" yaml:"shard_to"`

	// ServiceTag is the URL service tag accepted by the selector.
	ServiceTag string `json:"service_tag" yaml:"service_tag"`
}

// DefaultIndexConfig returns the settings for the public LLNL index node.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		HTTPConfig:     HTTPConfig{UserAgent: DefaultUserAgent},
		CoordinatorURL: DefaultCoordinatorURL,
		SelectURL:      DefaultSelectURL,
		ShardFrom:      DefaultShardFrom,
		ShardTo:        DefaultShardTo,
		ServiceTag:     DefaultServiceTag,
	}
}

// ScriptConfig holds settings for script rendering and output.
type ScriptConfig struct {
	// OutputDir is the directory the script is written to. It must exist.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// TemplatePath is an optional template file replacing the embedded one.
	TemplatePath string `json:"template" yaml:"template"`
}

// CatalogConfig holds settings for the optional run catalog.
type CatalogConfig struct {
	// Path is the SQLite database path. Empty disables the catalog.
	Path string `json:"path" yaml:"path"`
}

// Package scriptsdk talks to a script origin: it fetches the published version document and
// downloads individual files.
package scriptsdk

import (
	"net/url"
	"strings"

	"github.com/imroc/req/v3"
)

// SDK is the client for a single origin
type SDK struct {
	client *req.Client
	config Config
}

// New validates cfg, fills in defaults and builds the HTTP client
func New(cfg Config) (*SDK, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &SDK{
		client: newHTTPClient(&cfg),
		config: cfg,
	}, nil
}

// Config returns the effective configuration
func (s *SDK) Config() Config {
	return s.config
}

// BaseURL returns the origin base url
func (s *SDK) BaseURL() string {
	return s.config.BaseURL
}

// Close releases idle connections
func (s *SDK) Close() {
	s.client.GetClient().CloseIdleConnections()
}

// filePath maps a slash separated relative name onto the files endpoint, escaping each segment
func (s *SDK) filePath(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.config.FilesPath + "/" + strings.Join(segments, "/")
}

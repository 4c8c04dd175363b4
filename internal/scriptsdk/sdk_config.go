package scriptsdk

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultVersionsPath   = "/timestamps"
	DefaultFilesPath      = "/file"
	DefaultConnectTimeout = 8 * time.Second
	DefaultReadTimeout    = 8 * time.Second
	DefaultRetries        = 1
	DefaultRetryInterval  = 500 * time.Millisecond
)

// Config describes where the origin lives and how patient the client is with it
type Config struct {
	BaseURL        string        // BaseURL is required, e.g. http://10.0.0.2:5000
	VersionsPath   string        // VersionsPath serves the filename -> version document
	FilesPath      string        // FilesPath is the prefix under which files are served
	ConnectTimeout time.Duration // ConnectTimeout bounds dialing the origin
	ReadTimeout    time.Duration // ReadTimeout bounds waiting for and reading a response
	Retries        int           // Retries on transport errors, 0 disables retrying
	RetryInterval  time.Duration
}

// WithDefaults returns a copy with every unset field filled in
func (c Config) WithDefaults() Config {
	if c.VersionsPath == "" {
		c.VersionsPath = DefaultVersionsPath
	}
	if c.FilesPath == "" {
		c.FilesPath = DefaultFilesPath
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.FilesPath = "/" + strings.Trim(c.FilesPath, "/")
	if !strings.HasPrefix(c.VersionsPath, "/") {
		c.VersionsPath = "/" + c.VersionsPath
	}
	return c
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidServerURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidServerURL)
	}

	return nil
}

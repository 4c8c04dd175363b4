package server

import (
	"fmt"

	"github.com/openmined/scriptsync/internal/server/scripts"
	"github.com/ulule/limiter/v3"
)

const (
	DefaultAddr      = "127.0.0.1:5000"
	DefaultRateLimit = "600-M"
)

type Config struct {
	Http      *HttpServerConfig `mapstructure:"http"`
	Scripts   *scripts.Config   `mapstructure:"scripts"`
	RateLimit string            `mapstructure:"rate_limit"`
}

type HttpServerConfig struct {
	Addr     string `mapstructure:"addr"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

func (c *HttpServerConfig) TLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

func (c *Config) Validate() error {
	if c.Http == nil {
		c.Http = &HttpServerConfig{}
	}
	if c.Http.Addr == "" {
		c.Http.Addr = DefaultAddr
	}
	if (c.Http.CertFile == "") != (c.Http.KeyFile == "") {
		return fmt.Errorf("server: cert_file and key_file must be set together")
	}

	if c.Scripts == nil {
		return scripts.ErrNoRootDir
	}
	if err := c.Scripts.Validate(); err != nil {
		return err
	}

	if c.RateLimit == "" {
		c.RateLimit = DefaultRateLimit
	}
	if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
		return fmt.Errorf("server: rate limit %q: %w", c.RateLimit, err)
	}
	return nil
}

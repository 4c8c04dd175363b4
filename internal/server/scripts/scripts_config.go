package scripts

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/scriptsync/internal/utils"
)

const DefaultCacheSize = 256

// DefaultInclude publishes the script and config trees
var DefaultInclude = []string{"scripts/**", "config/**"}

var ErrNoRootDir = errors.New("scripts: root dir missing")

type Config struct {
	RootDir   string   `mapstructure:"root_dir"`
	Include   []string `mapstructure:"include"`
	CacheSize int      `mapstructure:"cache_size"`
	Watch     bool     `mapstructure:"watch"`
}

func (c *Config) Validate() error {
	if c.RootDir == "" {
		return ErrNoRootDir
	}
	root, err := utils.ResolvePath(c.RootDir)
	if err != nil {
		return fmt.Errorf("scripts: root dir: %w", err)
	}
	c.RootDir = root

	if len(c.Include) == 0 {
		c.Include = DefaultInclude
	}
	for _, pattern := range c.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("scripts: invalid include pattern %q", pattern)
		}
	}

	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	return nil
}

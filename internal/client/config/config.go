package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/openmined/scriptsync/internal/utils"
)

const (
	DefaultWorkers        = 3
	MaxWorkers            = 16
	DefaultTimeout        = 8 * time.Second
	DefaultRetries        = 1
	DefaultCommitPolicy   = "partial"
	DefaultVersionsPath   = "/timestamps"
	DefaultFilesPath      = "/file"
	DefaultServerURL      = "http://127.0.0.1:5000"
	configDirName         = ".scriptsync"
	configFileName        = "config.json"
	dataDirName           = "ScriptSync"
	commitPolicyAllOrNone = "all_or_nothing"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, configDirName, configFileName)
	DefaultDataDir    = filepath.Join(home, dataDirName)
)

var (
	ErrNoDataDir      = errors.New("config: data dir missing")
	ErrNoServerURL    = errors.New("config: server url missing")
	ErrInvalidWorkers = errors.New("config: workers out of range")
	ErrInvalidTimeout = errors.New("config: timeout must be positive")
	ErrInvalidPolicy  = errors.New("config: unknown commit policy")
)

// Duration is a time.Duration that reads and writes as "8s" in the config file
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// bare numbers are seconds
		var secs float64
		if err2 := json.Unmarshal(b, &secs); err2 != nil {
			return fmt.Errorf("duration %s: %w", b, err)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	DataDir        string   `json:"data_dir"`
	ServerURL      string   `json:"server_url"`
	VersionsPath   string   `json:"versions_path,omitempty"`
	FilesPath      string   `json:"files_path,omitempty"`
	Workers        int      `json:"workers,omitempty"`
	ConnectTimeout Duration `json:"connect_timeout,omitempty"`
	ReadTimeout    Duration `json:"read_timeout,omitempty"`
	Retries        int      `json:"retries,omitempty"`
	CommitPolicy   string   `json:"commit_policy,omitempty"`
	Ignore         []string `json:"ignore,omitempty"`
	Interval       Duration `json:"interval,omitempty"`
	Path           string   `json:"-"`
}

// Default returns a config with every knob at its default
func Default() *Config {
	return &Config{
		DataDir:        DefaultDataDir,
		ServerURL:      DefaultServerURL,
		VersionsPath:   DefaultVersionsPath,
		FilesPath:      DefaultFilesPath,
		Workers:        DefaultWorkers,
		ConnectTimeout: Duration(DefaultTimeout),
		ReadTimeout:    Duration(DefaultTimeout),
		Retries:        DefaultRetries,
		CommitPolicy:   DefaultCommitPolicy,
		Path:           DefaultConfigPath,
	}
}

// Validate normalizes paths and fills zero values before checking ranges
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return ErrNoDataDir
	}
	dataDir, err := utils.ResolvePath(c.DataDir)
	if err != nil {
		return fmt.Errorf("config: data dir: %w", err)
	}
	c.DataDir = dataDir

	if c.Path != "" {
		path, err := utils.ResolvePath(c.Path)
		if err != nil {
			return fmt.Errorf("config: path: %w", err)
		}
		c.Path = path
	}

	if c.ServerURL == "" {
		return ErrNoServerURL
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: invalid server url %q", c.ServerURL)
	}

	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: %d (1-%d)", ErrInvalidWorkers, c.Workers, MaxWorkers)
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = Duration(DefaultTimeout)
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = Duration(DefaultTimeout)
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.Interval < 0 {
		return ErrInvalidTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}

	if c.VersionsPath == "" {
		c.VersionsPath = DefaultVersionsPath
	}
	if c.FilesPath == "" {
		c.FilesPath = DefaultFilesPath
	}

	switch c.CommitPolicy {
	case "":
		c.CommitPolicy = DefaultCommitPolicy
	case DefaultCommitPolicy, commitPolicyAllOrNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, c.CommitPolicy)
	}

	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return utils.WriteFileAtomic(path, data, 0o644)
}

func LoadClientConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path

	return cfg, nil
}

package scripts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openmined/scriptsync/internal/utils"
)

var (
	ErrNotPublished = errors.New("scripts: file not published")
	ErrInvalidName  = errors.New("scripts: invalid file name")
)

type cachedFile struct {
	modTime time.Time
	size    int64
	data    []byte
}

// ScriptIndex publishes the files under a root directory that match the include globs.
// A file's version is its modification time in unix seconds.
type ScriptIndex struct {
	rootDir string
	include []string

	mu       sync.RWMutex
	versions map[string]int64 // nil when stale
	gen      uint64
	watching atomic.Bool
	cache    *lru.Cache[string, cachedFile]
}

func NewScriptIndex(cfg *Config) (*ScriptIndex, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[string, cachedFile](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("scripts: create cache: %w", err)
	}

	return &ScriptIndex{
		rootDir: cfg.RootDir,
		include: cfg.Include,
		cache:   cache,
	}, nil
}

func (idx *ScriptIndex) RootDir() string {
	return idx.rootDir
}

// Published reports whether a slash separated name matches an include glob
func (idx *ScriptIndex) Published(name string) bool {
	for _, pattern := range idx.include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Versions returns the current name -> version map. Without a running watcher every call rescans
// the root; with one, the last scan is reused until a change invalidates it.
func (idx *ScriptIndex) Versions() (map[string]int64, error) {
	idx.mu.RLock()
	if idx.versions != nil {
		out := maps.Clone(idx.versions)
		idx.mu.RUnlock()
		return out, nil
	}
	gen := idx.gen
	idx.mu.RUnlock()

	versions, err := idx.scan()
	if err != nil {
		return nil, err
	}

	if idx.watching.Load() {
		idx.mu.Lock()
		// a change that raced the scan leaves the snapshot stale
		if idx.gen == gen {
			idx.versions = versions
		}
		idx.mu.Unlock()
	}

	return maps.Clone(versions), nil
}

func (idx *ScriptIndex) scan() (map[string]int64, error) {
	start := time.Now()
	versions := make(map[string]int64)

	err := filepath.WalkDir(idx.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(idx.rootDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !idx.Published(name) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// removed between readdir and stat
			return nil
		}
		versions[name] = info.ModTime().Unix()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scripts: scan %s: %w", idx.rootDir, err)
	}

	slog.Debug("scripts index scan", "root", idx.rootDir, "files", len(versions), "took", time.Since(start))
	return versions, nil
}

// Open returns the content and version of a published file
func (idx *ScriptIndex) Open(name string) ([]byte, int64, error) {
	path, err := utils.SafeJoin(idx.rootDir, name)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	name = utils.NormPath(name)
	if !idx.Published(name) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotPublished, name)
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotPublished, name)
	}

	if cached, ok := idx.cache.Get(name); ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.data, info.ModTime().Unix(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("scripts: read %s: %w", name, err)
	}
	idx.cache.Add(name, cachedFile{modTime: info.ModTime(), size: info.Size(), data: data})

	return data, info.ModTime().Unix(), nil
}

// Invalidate drops the version snapshot and any cached content for an absolute path
func (idx *ScriptIndex) Invalidate(path string) {
	idx.mu.Lock()
	idx.versions = nil
	idx.gen++
	idx.mu.Unlock()

	if rel, err := filepath.Rel(idx.rootDir, path); err == nil {
		idx.cache.Remove(filepath.ToSlash(rel))
	}
}

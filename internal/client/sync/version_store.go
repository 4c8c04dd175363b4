package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/openmined/scriptsync/internal/utils"
)

const versionFileMode os.FileMode = 0o644

// VersionStore persists the version map of the files present in the script directory
type VersionStore interface {
	// Load never fails: an absent, unreadable or malformed document reads as an empty map
	Load() VersionMap
	// Save replaces the persisted map. Readers see either the old or the new map.
	Save(VersionMap) error
	// Reset discards the persisted map
	Reset() error
}

// FileVersionStore keeps the version map as a flat JSON object in a single file
type FileVersionStore struct {
	path string
}

func NewFileVersionStore(path string) *FileVersionStore {
	return &FileVersionStore{path: path}
}

func (s *FileVersionStore) Path() string {
	return s.path
}

func (s *FileVersionStore) Load() VersionMap {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("version store unreadable, starting empty", "path", s.path, "error", err)
		}
		return VersionMap{}
	}

	var versions VersionMap
	if err := json.Unmarshal(data, &versions); err != nil {
		slog.Warn("version store malformed, starting empty", "path", s.path, "error", err)
		return VersionMap{}
	}
	if versions == nil {
		return VersionMap{}
	}
	if err := versions.Validate(); err != nil {
		slog.Warn("version store invalid, starting empty", "path", s.path, "error", err)
		return VersionMap{}
	}

	return versions
}

func (s *FileVersionStore) Save(versions VersionMap) error {
	if versions == nil {
		versions = VersionMap{}
	}
	if err := versions.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	data, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStoreWrite, err)
	}

	if err := utils.WriteFileAtomic(s.path, data, versionFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	slog.Debug("version store saved", "path", s.path, "entries", len(versions))
	return nil
}

func (s *FileVersionStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: reset: %w", ErrStoreWrite, err)
	}
	return nil
}

package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileVersionStore_LoadMissing(t *testing.T) {
	store := NewFileVersionStore(filepath.Join(t.TempDir(), "versions.json"))
	assert.Equal(t, VersionMap{}, store.Load())
}

func TestFileVersionStore_LoadDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `{"a": 1,`},
		{"not an object", `[1, 2]`},
		{"null", `null`},
		{"string value", `{"a": "x"}`},
		{"negative", `{"a": -4}`},
		{"reserved key", `{"_meta": 1}`},
		{"empty file", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "versions.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			assert.Equal(t, VersionMap{}, NewFileVersionStore(path).Load())
		})
	}
}

func TestFileVersionStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".data", "versions.json")
	store := NewFileVersionStore(path)

	want := VersionMap{"scripts/main.py": 1700000000, "config/app.json": 3}
	require.NoError(t, store.Save(want))
	assert.Equal(t, want, store.Load())

	// no temp files left next to the document
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "versions.json", entries[0].Name())
}

func TestFileVersionStore_SaveReplacesWholesale(t *testing.T) {
	store := NewFileVersionStore(filepath.Join(t.TempDir(), "versions.json"))
	require.NoError(t, store.Save(VersionMap{"a": 1, "b": 2}))
	require.NoError(t, store.Save(VersionMap{"c": 3}))
	assert.Equal(t, VersionMap{"c": 3}, store.Load())
}

func TestFileVersionStore_SaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "versions.json")
	store := NewFileVersionStore(path)
	require.NoError(t, store.Save(VersionMap{"a": 1}))

	err := store.Save(VersionMap{"_meta": 1})
	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Equal(t, VersionMap{"a": 1}, store.Load())
}

func TestFileVersionStore_SaveFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "versions.json")
	store := NewFileVersionStore(path)
	require.NoError(t, store.Save(VersionMap{"a": 1}))

	// the parent of this path is a regular file, so the write cannot happen
	blocked := NewFileVersionStore(filepath.Join(path, "nested.json"))
	err := blocked.Save(VersionMap{"a": 2})
	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.Equal(t, VersionMap{"a": 1}, store.Load())
}

func TestFileVersionStore_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "versions.json")
	store := NewFileVersionStore(path)

	require.NoError(t, store.Reset(), "reset of a missing file is fine")
	require.NoError(t, store.Save(VersionMap{"a": 1}))
	require.NoError(t, store.Reset())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, VersionMap{}, store.Load())
}

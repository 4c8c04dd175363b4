package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncIgnoreList_UnconfiguredIgnoresNothing(t *testing.T) {
	ignore := NewSyncIgnoreList("", nil)
	ignore.Load()

	for _, name := range []string{
		"scripts/__pycache__/main.cpython-311.pyc",
		"lib/helper.pyc",
		"config/.DS_Store",
		"scripts/main.py",
	} {
		assert.False(t, ignore.ShouldIgnore(name), name)
	}
}

func TestSyncIgnoreList_MissingFile(t *testing.T) {
	ignore := NewSyncIgnoreList(filepath.Join(t.TempDir(), "scriptsyncignore"), []string{"*.pyc"})
	ignore.Load()

	assert.True(t, ignore.ShouldIgnore("lib/helper.pyc"))
	assert.False(t, ignore.ShouldIgnore("lib/helper.py"))
}

func TestSyncIgnoreList_PatternsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scriptsyncignore")
	custom := []byte(`
# drafts are never shipped
scripts/drafts/**
`)
	require.NoError(t, os.WriteFile(path, custom, 0o644))

	ignore := NewSyncIgnoreList(path, []string{"*.bak"})
	ignore.Load()

	assert.True(t, ignore.ShouldIgnore("config/app.json.bak"))
	assert.True(t, ignore.ShouldIgnore("scripts/drafts/wip.py"))
	assert.False(t, ignore.ShouldIgnore("scripts/main.py"))
}

func TestSyncIgnoreList_NilAndUnloaded(t *testing.T) {
	var nilList *SyncIgnoreList
	assert.False(t, nilList.ShouldIgnore("anything"))

	unloaded := NewSyncIgnoreList("", []string{"*"})
	assert.False(t, unloaded.ShouldIgnore("anything"))
}

package scripts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func newTestIndex(t *testing.T) (*ScriptIndex, string) {
	t.Helper()
	root := t.TempDir()
	idx, err := NewScriptIndex(&Config{RootDir: root})
	require.NoError(t, err)
	return idx, root
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{RootDir: t.TempDir()}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultInclude, cfg.Include)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)

	assert.ErrorIs(t, (&Config{}).Validate(), ErrNoRootDir)
	assert.Error(t, (&Config{RootDir: t.TempDir(), Include: []string{"scripts/[a"}}).Validate())
}

func TestScriptIndex_Versions(t *testing.T) {
	idx, root := newTestIndex(t)
	t1 := time.Unix(1700000000, 0)
	t2 := time.Unix(1700000500, 0)

	writeFile(t, root, "scripts/main.py", "print(1)", t1)
	writeFile(t, root, "scripts/lib/util.py", "x = 1", t2)
	writeFile(t, root, "config/app.json", "{}", t1)
	writeFile(t, root, "server.py", "unpublished", t1)
	writeFile(t, root, "secrets/key", "nope", t1)

	versions, err := idx.Versions()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"scripts/main.py":     1700000000,
		"scripts/lib/util.py": 1700000500,
		"config/app.json":     1700000000,
	}, versions)
}

func TestScriptIndex_VersionsMissingRoot(t *testing.T) {
	idx, err := NewScriptIndex(&Config{RootDir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)

	versions, err := idx.Versions()
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestScriptIndex_VersionsRescanWithoutWatcher(t *testing.T) {
	idx, root := newTestIndex(t)
	writeFile(t, root, "scripts/a.py", "a", time.Unix(100, 0))

	versions, err := idx.Versions()
	require.NoError(t, err)
	assert.Equal(t, int64(100), versions["scripts/a.py"])

	writeFile(t, root, "scripts/a.py", "a2", time.Unix(200, 0))
	versions, err = idx.Versions()
	require.NoError(t, err)
	assert.Equal(t, int64(200), versions["scripts/a.py"])
}

func TestScriptIndex_Open(t *testing.T) {
	idx, root := newTestIndex(t)
	writeFile(t, root, "scripts/main.py", "v1", time.Unix(100, 0))
	writeFile(t, root, "server.py", "hidden", time.Unix(100, 0))

	data, version, err := idx.Open("scripts/main.py")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.Equal(t, int64(100), version)

	// a rewrite with a new mtime is not served from the cache
	writeFile(t, root, "scripts/main.py", "v2", time.Unix(200, 0))
	data, version, err = idx.Open("scripts/main.py")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, int64(200), version)

	_, _, err = idx.Open("server.py")
	assert.ErrorIs(t, err, ErrNotPublished)

	_, _, err = idx.Open("scripts/missing.py")
	assert.ErrorIs(t, err, ErrNotPublished)

	_, _, err = idx.Open("scripts")
	assert.ErrorIs(t, err, ErrNotPublished)

	for _, name := range []string{"", "../etc/passwd", "scripts/../../x", "/etc/passwd"} {
		_, _, err = idx.Open(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestScriptIndex_Published(t *testing.T) {
	idx, err := NewScriptIndex(&Config{RootDir: t.TempDir(), Include: []string{"**/*.py"}})
	require.NoError(t, err)

	assert.True(t, idx.Published("a.py"))
	assert.True(t, idx.Published("deep/nested/b.py"))
	assert.False(t, idx.Published("c.json"))
}

func TestScriptIndex_WatchInvalidates(t *testing.T) {
	idx, root := newTestIndex(t)
	writeFile(t, root, "scripts/a.py", "a", time.Unix(100, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- idx.Watch(ctx) }()
	require.Eventually(t, idx.watching.Load, 5*time.Second, 10*time.Millisecond)

	versions, err := idx.Versions()
	require.NoError(t, err)
	require.Len(t, versions, 1)

	writeFile(t, root, "scripts/b.py", "b", time.Unix(300, 0))
	require.Eventually(t, func() bool {
		versions, err := idx.Versions()
		_, ok := versions["scripts/b.py"]
		return err == nil && ok
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, idx.watching.Load())
}

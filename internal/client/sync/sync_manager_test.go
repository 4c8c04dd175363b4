package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"sync/atomic"
	"testing"

	"github.com/openmined/scriptsync/internal/client/workspace"
	"github.com/openmined/scriptsync/internal/scriptsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOrigin serves a version document and file bodies the way the origin server does
type testOrigin struct {
	mu            gosync.Mutex
	versions      map[string]string
	files         map[string]string
	failFiles     map[string]int
	versionStatus int

	versionHits atomic.Int32
	fileHits    atomic.Int32
}

func (o *testOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case r.URL.Path == "/timestamps":
		o.versionHits.Add(1)
		if o.versionStatus != 0 {
			w.WriteHeader(o.versionStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		parts := make([]string, 0, len(o.versions))
		for name, v := range o.versions {
			parts = append(parts, fmt.Sprintf("%q: %q", name, v))
		}
		fmt.Fprintf(w, "{%s}", strings.Join(parts, ","))
	case strings.HasPrefix(r.URL.Path, "/file/"):
		o.fileHits.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/file/")
		if status, ok := o.failFiles[name]; ok {
			w.WriteHeader(status)
			return
		}
		body, ok := o.files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	default:
		http.NotFound(w, r)
	}
}

func (o *testOrigin) set(fn func(o *testOrigin)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o)
}

func newTestManager(t *testing.T, origin *testOrigin, opts ManagerOptions) (*SyncManager, *workspace.Workspace) {
	t.Helper()

	srv := httptest.NewServer(origin)
	t.Cleanup(srv.Close)

	sdk, err := scriptsdk.New(scriptsdk.Config{BaseURL: srv.URL, Retries: 0})
	require.NoError(t, err)
	t.Cleanup(sdk.Close)

	ws, err := workspace.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	mgr := NewManager(ws, sdk, opts)
	require.NoError(t, mgr.Start())
	t.Cleanup(func() { mgr.Stop() })
	return mgr, ws
}

func readScript(t *testing.T, ws *workspace.Workspace, name string) string {
	t.Helper()
	p, err := ws.ScriptPath(name)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestSyncManager_EndToEnd(t *testing.T) {
	origin := &testOrigin{
		versions: map[string]string{
			"scripts/main.py": "1700000000",
			"config/app.json": "1700000100",
			"_meta":           "9",
		},
		files: map[string]string{
			"scripts/main.py": "print('v1')",
			"config/app.json": `{"debug": false}`,
		},
	}
	mgr, ws := newTestManager(t, origin, ManagerOptions{Workers: 2})
	ctx := context.Background()

	result, err := mgr.Synchronize(ctx, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, "print('v1')", readScript(t, ws, "scripts/main.py"))
	assert.Equal(t, VersionMap{"scripts/main.py": 1700000000, "config/app.json": 1700000100}, mgr.Versions())

	// unchanged remote: one version request, no file requests
	fileHits := origin.fileHits.Load()
	result, err = mgr.Synchronize(ctx, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Planned)
	assert.Equal(t, fileHits, origin.fileHits.Load())

	// one file changes upstream
	origin.set(func(o *testOrigin) {
		o.versions["scripts/main.py"] = "1700000500"
		o.files["scripts/main.py"] = "print('v2')"
	})
	result, err = mgr.Synchronize(ctx, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Planned)
	assert.Equal(t, "print('v2')", readScript(t, ws, "scripts/main.py"))

	history, err := mgr.History(10)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestSyncManager_PartialFailureOverHTTP(t *testing.T) {
	origin := &testOrigin{
		versions:  map[string]string{"a.py": "2", "b.py": "2"},
		files:     map[string]string{"a.py": "a2", "b.py": "b2"},
		failFiles: map[string]int{"b.py": http.StatusInternalServerError},
	}
	mgr, ws := newTestManager(t, origin, ManagerOptions{})

	result, err := mgr.Synchronize(context.Background(), ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, StatePartiallyCommitted, result.State)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, VersionMap{"a.py": 2}, mgr.Versions())

	bPath, err := ws.ScriptPath("b.py")
	require.NoError(t, err)
	assert.NoFileExists(t, bPath, "failed fetch leaves no file")
}

func TestSyncManager_ServerErrorLeavesStateUnchanged(t *testing.T) {
	origin := &testOrigin{
		versions: map[string]string{"a.py": "1"},
		files:    map[string]string{"a.py": "a1"},
	}
	mgr, ws := newTestManager(t, origin, ManagerOptions{})

	_, err := mgr.Synchronize(context.Background(), ModeIncremental)
	require.NoError(t, err)
	before, err := os.ReadFile(ws.VersionFilePath())
	require.NoError(t, err)

	origin.set(func(o *testOrigin) { o.versionStatus = http.StatusInternalServerError })

	for _, mode := range []SyncMode{ModeIncremental, ModeFull} {
		result, err := mgr.Synchronize(context.Background(), mode)
		assert.ErrorIs(t, err, ErrSyncAborted)
		assert.True(t, result.Aborted)
		assert.Equal(t, 0, result.Succeeded)
		assert.Equal(t, 0, result.Failed)

		after, err := os.ReadFile(ws.VersionFilePath())
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, "a1", readScript(t, ws, "a.py"))
	}
}

func TestSyncManager_FullResync(t *testing.T) {
	origin := &testOrigin{
		versions: map[string]string{"scripts/a.py": "1", "config/c.json": "1", "_meta": "1"},
		files:    map[string]string{"scripts/a.py": "a", "config/c.json": "{}"},
	}
	mgr, ws := newTestManager(t, origin, ManagerOptions{})

	stale := filepath.Join(ws.ScriptsDir, "scripts", "stale.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	result, err := mgr.Synchronize(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)

	files, err := listFiles(ws.ScriptsDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scripts/a.py", "config/c.json"}, files)
	assert.Equal(t, VersionMap{"scripts/a.py": 1, "config/c.json": 1}, mgr.Versions())
}

func TestSyncManager_IgnoreFile(t *testing.T) {
	origin := &testOrigin{
		versions: map[string]string{"a.py": "1", "notes.bak": "1", "drafts/x.py": "1"},
		files:    map[string]string{"a.py": "a", "notes.bak": "n", "drafts/x.py": "x"},
	}

	srv := httptest.NewServer(origin)
	defer srv.Close()
	sdk, err := scriptsdk.New(scriptsdk.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	defer sdk.Close()

	ws, err := workspace.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ws.IgnoreFilePath(), []byte("drafts/\n"), 0o644))

	mgr := NewManager(ws, sdk, ManagerOptions{Ignore: []string{"*.bak"}})
	require.NoError(t, mgr.Start())
	defer mgr.Stop()

	result, err := mgr.Synchronize(context.Background(), ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Planned)
	assert.Equal(t, VersionMap{"a.py": 1}, mgr.Versions())
}

func TestSyncManager_FetchOne(t *testing.T) {
	origin := &testOrigin{
		versions: map[string]string{"a.py": "1"},
		files:    map[string]string{"a.py": "a", "extra/tool.py": "tool"},
	}
	mgr, ws := newTestManager(t, origin, ManagerOptions{})

	outcome, err := mgr.FetchOne(context.Background(), "extra/tool.py")
	require.NoError(t, err)
	assert.Equal(t, int64(4), outcome.Bytes)
	assert.Equal(t, "tool", readScript(t, ws, "extra/tool.py"))
	assert.Equal(t, VersionMap{}, mgr.Versions())

	_, err = mgr.FetchOne(context.Background(), "missing.py")
	assert.ErrorIs(t, err, scriptsdk.ErrFileNotFound)
}

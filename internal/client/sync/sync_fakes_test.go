package sync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	gosync "sync"
	"sync/atomic"
	"time"
)

var errFakeNetwork = errors.New("fake: connection refused")

type memStore struct {
	mu       gosync.Mutex
	data     VersionMap
	saves    int
	resets   int
	saveErr  error
	resetErr error
}

func newMemStore(initial VersionMap) *memStore {
	return &memStore{data: initial.Clone()}
}

func (s *memStore) Load() VersionMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *memStore) Save(m VersionMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.data = m.Clone()
	return nil
}

func (s *memStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetErr != nil {
		return s.resetErr
	}
	s.resets++
	s.data = VersionMap{}
	return nil
}

func (s *memStore) snapshot() VersionMap {
	return s.Load()
}

type fakeRemote struct {
	versions VersionMap
	err      error
	calls    atomic.Int32
}

func (r *fakeRemote) FetchVersions(ctx context.Context) (VersionMap, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.versions.Clone(), nil
}

// fakeFetcher writes "<name>" as the file content under dir unless the name is listed in fail
type fakeFetcher struct {
	dir     string
	fail    map[string]error
	delay   time.Duration
	started chan string
	release chan struct{}

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       gosync.Mutex
	fetched  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, name string) FetchOutcome {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.started != nil {
		f.started <- name
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return FetchOutcome{Path: name, Err: ctx.Err()}
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if err, ok := f.fail[name]; ok {
		return FetchOutcome{Path: name, Err: err}
	}

	if f.dir != "" {
		dest := filepath.Join(f.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return FetchOutcome{Path: name, Err: err}
		}
		if err := os.WriteFile(dest, []byte(name), 0o644); err != nil {
			return FetchOutcome{Path: name, Err: err}
		}
	}

	f.mu.Lock()
	f.fetched = append(f.fetched, name)
	f.mu.Unlock()
	return FetchOutcome{Path: name, Bytes: int64(len(name))}
}

type recordingHistory struct {
	mu      gosync.Mutex
	results []SyncResult
	errs    []error
}

func (h *recordingHistory) Record(result *SyncResult, syncErr error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, *result)
	h.errs = append(h.errs, syncErr)
	return nil
}

// listFiles returns every regular file below dir as slash separated relative names
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

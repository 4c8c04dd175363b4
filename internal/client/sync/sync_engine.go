package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openmined/scriptsync/internal/client/workspace"
	"github.com/openmined/scriptsync/internal/utils"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 3

// Locker guards the script directory against other processes
type Locker interface {
	Lock() error
	Unlock() error
}

type EngineOption func(*SyncEngine)

func WithWorkers(n int) EngineOption {
	return func(e *SyncEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithCommitPolicy(p CommitPolicy) EngineOption {
	return func(e *SyncEngine) {
		e.policy = p
	}
}

func WithLocker(l Locker) EngineOption {
	return func(e *SyncEngine) {
		e.locker = l
	}
}

func WithHistory(h HistoryRecorder) EngineOption {
	return func(e *SyncEngine) {
		e.history = h
	}
}

// SyncEngine brings the script directory up to date with the origin.
// At most one Synchronize or FetchOne call runs at a time; a second caller is rejected.
type SyncEngine struct {
	store      VersionStore
	remote     RemoteVersionSource
	fetcher    FileFetcher
	scriptsDir string
	locker     Locker
	history    HistoryRecorder
	workers    int
	policy     CommitPolicy

	muSync  sync.Mutex
	muState sync.RWMutex
	state   SyncState
}

func NewSyncEngine(
	store VersionStore,
	remote RemoteVersionSource,
	fetcher FileFetcher,
	scriptsDir string,
	opts ...EngineOption,
) *SyncEngine {
	e := &SyncEngine{
		store:      store,
		remote:     remote,
		fetcher:    fetcher,
		scriptsDir: scriptsDir,
		workers:    DefaultWorkers,
		policy:     CommitPartialCredit,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State is the phase of the current run, or the terminal state of the last one
func (e *SyncEngine) State() SyncState {
	e.muState.RLock()
	defer e.muState.RUnlock()
	return e.state
}

func (e *SyncEngine) setState(s SyncState) {
	e.muState.Lock()
	e.state = s
	e.muState.Unlock()
}

// Synchronize runs one sync to completion. A run that ends with failed files still returns a nil
// error; the result state tells PartiallyCommitted from Done.
func (e *SyncEngine) Synchronize(ctx context.Context, mode SyncMode) (*SyncResult, error) {
	result := &SyncResult{
		RunID:     uuid.NewString(),
		Mode:      mode,
		State:     StateIdle,
		StartedAt: time.Now(),
	}

	release, err := e.acquire()
	if err != nil {
		result.State = StateAborted
		result.Aborted = true
		e.record(result, err)
		return result, err
	}
	defer release()

	log := slog.With("run", result.RunID, "mode", mode.String())
	err = e.run(ctx, log, result)
	result.Duration = time.Since(result.StartedAt)
	e.setState(result.State)
	e.record(result, err)

	if err != nil {
		log.Error("sync failed", "state", result.State.String(), "error", err, "took", result.Duration)
	} else if result.Planned > 0 {
		log.Info("sync",
			"state", result.State.String(),
			"planned", result.Planned,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"committed", result.Committed,
			"took", result.Duration,
		)
	}
	return result, err
}

// FetchOne downloads a single published file without touching the version map
func (e *SyncEngine) FetchOne(ctx context.Context, name string) (FetchOutcome, error) {
	if IsReserved(name) {
		return FetchOutcome{Path: name, Err: fmt.Errorf("%w: reserved name %q", ErrInvalidPath, name)}, ErrInvalidPath
	}

	release, err := e.acquire()
	if err != nil {
		return FetchOutcome{Path: name, Err: err}, err
	}
	defer release()

	outcome := e.fetcher.Fetch(ctx, name)
	return outcome, outcome.Err
}

// acquire takes the in-process guard and then the cross-process lock
func (e *SyncEngine) acquire() (func(), error) {
	if !e.muSync.TryLock() {
		return nil, ErrSyncAlreadyRunning
	}

	if e.locker != nil {
		if err := e.locker.Lock(); err != nil {
			e.muSync.Unlock()
			if errors.Is(err, workspace.ErrWorkspaceLocked) {
				return nil, fmt.Errorf("%w: %w", ErrSyncAlreadyRunning, err)
			}
			return nil, err
		}
	}

	return func() {
		if e.locker != nil {
			if err := e.locker.Unlock(); err != nil {
				slog.Warn("failed to release workspace lock", "error", err)
			}
		}
		e.muSync.Unlock()
	}, nil
}

func (e *SyncEngine) run(ctx context.Context, log *slog.Logger, result *SyncResult) error {
	abort := func(err error) error {
		result.State = StateAborted
		result.Aborted = true
		return fmt.Errorf("%w: %w", ErrSyncAborted, err)
	}

	e.setState(StateFetchingRemoteVersions)
	remote, err := e.remote.FetchVersions(ctx)
	if err != nil {
		if !errors.Is(err, ErrRemoteVersions) {
			err = fmt.Errorf("%w: %w", ErrRemoteVersions, err)
		}
		return abort(err)
	}

	var local VersionMap
	if result.Mode == ModeFull {
		if err := e.wipe(); err != nil {
			return abort(err)
		}
		local = VersionMap{}
	} else {
		local = e.store.Load()
	}

	e.setState(StateReconciling)
	var plan SyncPlan
	if result.Mode == ModeFull {
		plan = fullPlan(remote)
	} else {
		plan = Diff(local, remote)
	}
	result.Planned = plan.Cardinality()
	log.Debug("reconciled", "remote", len(remote), "local", len(local), "planned", result.Planned)

	if result.Planned == 0 {
		result.State = StateDone
		return nil
	}

	e.setState(StateDownloading)
	outcomes := e.download(ctx, planOrder(plan))

	e.setState(StateCommitting)
	return e.commit(log, result, local, remote, outcomes)
}

// wipe forgets every recorded version, then empties the script directory.
// The map must never list files the directory no longer holds.
func (e *SyncEngine) wipe() error {
	if e.scriptsDir == "" {
		return fmt.Errorf("%w: no script directory", ErrWipeFailed)
	}
	if err := e.store.Reset(); err != nil {
		return fmt.Errorf("%w: %w", ErrWipeFailed, err)
	}
	if err := utils.ResetDir(e.scriptsDir); err != nil {
		return fmt.Errorf("%w: %w", ErrWipeFailed, err)
	}
	return nil
}

// download fetches every name on a bounded pool and waits for all of them.
// A failed fetch never cancels its siblings.
func (e *SyncEngine) download(ctx context.Context, names []string) []FetchOutcome {
	outcomes := make([]FetchOutcome, len(names))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = FetchOutcome{Path: name, Err: err}
				return nil
			}
			outcome := e.fetcher.Fetch(ctx, name)
			outcome.Path = name
			outcomes[i] = outcome
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func (e *SyncEngine) commit(log *slog.Logger, result *SyncResult, local, remote VersionMap, outcomes []FetchOutcome) error {
	succeeded := make(VersionMap, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			succeeded[outcome.Path] = remote[outcome.Path]
			continue
		}
		result.Failures = append(result.Failures, FileFailure{Path: outcome.Path, Err: outcome.Err})
		log.Warn("fetch failed", "name", outcome.Path, "error", outcome.Err)
	}
	result.Succeeded = len(succeeded)
	result.Failed = len(result.Failures)

	if result.Failed > 0 {
		result.State = StatePartiallyCommitted
		if e.policy == CommitAllOrNothing {
			log.Warn("commit skipped", "policy", e.policy.String(), "failed", result.Failed)
			return nil
		}
		if len(succeeded) == 0 {
			return nil
		}
	}

	if err := e.store.Save(local.Merge(succeeded)); err != nil {
		result.State = StatePartiallyCommitted
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	result.Committed = true

	if result.Failed == 0 {
		result.State = StateDone
	}
	return nil
}

func (e *SyncEngine) record(result *SyncResult, syncErr error) {
	if e.history == nil {
		return
	}
	if err := e.history.Record(result, syncErr); err != nil {
		slog.Warn("failed to record sync history", "run", result.RunID, "error", err)
	}
}

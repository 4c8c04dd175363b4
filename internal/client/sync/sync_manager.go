package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/scriptsync/internal/client/workspace"
	"github.com/openmined/scriptsync/internal/scriptsdk"
)

type ManagerOptions struct {
	Workers      int
	CommitPolicy CommitPolicy
	Ignore       []string
}

// SyncManager wires the engine to the workspace and the origin SDK
type SyncManager struct {
	sdk       *scriptsdk.SDK
	workspace *workspace.Workspace
	engine    *SyncEngine
	store     *FileVersionStore
	ignore    *SyncIgnoreList
	history   *SyncHistory
}

func NewManager(ws *workspace.Workspace, sdk *scriptsdk.SDK, opts ManagerOptions) *SyncManager {
	ignore := NewSyncIgnoreList(ws.IgnoreFilePath(), opts.Ignore)
	store := NewFileVersionStore(ws.VersionFilePath())
	history := NewSyncHistory(ws.HistoryPath())

	engine := NewSyncEngine(
		store,
		NewRemoteVersionSource(sdk, ignore),
		NewFileFetcher(sdk, ws.ScriptsDir),
		ws.ScriptsDir,
		WithWorkers(opts.Workers),
		WithCommitPolicy(opts.CommitPolicy),
		WithLocker(ws),
		WithHistory(history),
	)

	return &SyncManager{
		sdk:       sdk,
		workspace: ws,
		engine:    engine,
		store:     store,
		ignore:    ignore,
		history:   history,
	}
}

func (m *SyncManager) Start() error {
	slog.Debug("sync manager start", "scripts", m.workspace.ScriptsDir)
	if err := m.workspace.Setup(); err != nil {
		return fmt.Errorf("failed to setup workspace: %w", err)
	}
	m.ignore.Load()
	if err := m.history.Open(); err != nil {
		return fmt.Errorf("failed to open sync history: %w", err)
	}
	return nil
}

func (m *SyncManager) Stop() error {
	slog.Debug("sync manager stop")
	return m.history.Close()
}

func (m *SyncManager) Engine() *SyncEngine {
	return m.engine
}

func (m *SyncManager) Synchronize(ctx context.Context, mode SyncMode) (*SyncResult, error) {
	return m.engine.Synchronize(ctx, mode)
}

func (m *SyncManager) FetchOne(ctx context.Context, name string) (FetchOutcome, error) {
	return m.engine.FetchOne(ctx, name)
}

// Versions returns the persisted version map
func (m *SyncManager) Versions() VersionMap {
	return m.store.Load()
}

func (m *SyncManager) History(limit int) ([]HistoryEntry, error) {
	return m.history.Recent(limit)
}

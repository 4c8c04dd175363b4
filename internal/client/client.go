package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/scriptsync/internal/client/config"
	"github.com/openmined/scriptsync/internal/client/sync"
	"github.com/openmined/scriptsync/internal/client/workspace"
	"github.com/openmined/scriptsync/internal/scriptsdk"
)

// SyncReport is delivered once by SynchronizeAsync
type SyncReport struct {
	Result *sync.SyncResult
	Err    error
}

type Client struct {
	config    *config.Config
	sdk       *scriptsdk.SDK
	workspace *workspace.Workspace
	sync      *sync.SyncManager
}

func New(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := sync.ParseCommitPolicy(cfg.CommitPolicy)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.NewWorkspace(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	sdk, err := scriptsdk.New(scriptsdk.Config{
		BaseURL:        cfg.ServerURL,
		VersionsPath:   cfg.VersionsPath,
		FilesPath:      cfg.FilesPath,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout),
		ReadTimeout:    time.Duration(cfg.ReadTimeout),
		Retries:        cfg.Retries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sdk: %w", err)
	}

	mgr := sync.NewManager(ws, sdk, sync.ManagerOptions{
		Workers:      cfg.Workers,
		CommitPolicy: policy,
		Ignore:       cfg.Ignore,
	})
	if err := mgr.Start(); err != nil {
		sdk.Close()
		return nil, err
	}

	return &Client{
		config:    cfg,
		sdk:       sdk,
		workspace: ws,
		sync:      mgr,
	}, nil
}

func (c *Client) Config() *config.Config {
	return c.config
}

// ScriptDirectoryPath is where synchronized scripts live
func (c *Client) ScriptDirectoryPath() string {
	return c.workspace.ScriptsDir
}

// Synchronize blocks until one sync run has finished
func (c *Client) Synchronize(ctx context.Context, mode sync.SyncMode) (*sync.SyncResult, error) {
	return c.sync.Synchronize(ctx, mode)
}

// SynchronizeAsync starts a sync on its own goroutine. The returned channel yields exactly one report.
func (c *Client) SynchronizeAsync(ctx context.Context, mode sync.SyncMode) <-chan SyncReport {
	ch := make(chan SyncReport, 1)
	go func() {
		defer close(ch)
		result, err := c.sync.Synchronize(ctx, mode)
		ch <- SyncReport{Result: result, Err: err}
	}()
	return ch
}

// FetchOne downloads a single named file without recording its version
func (c *Client) FetchOne(ctx context.Context, name string) (sync.FetchOutcome, error) {
	return c.sync.FetchOne(ctx, name)
}

func (c *Client) Versions() sync.VersionMap {
	return c.sync.Versions()
}

func (c *Client) History(limit int) ([]sync.HistoryEntry, error) {
	return c.sync.History(limit)
}

// Run syncs once in the given mode, then incrementally every interval until ctx is done
func (c *Client) Run(ctx context.Context, mode sync.SyncMode, interval time.Duration) error {
	slog.Info("scriptsync client start", "datadir", c.config.DataDir, "server", c.config.ServerURL, "interval", interval)

	c.runOnce(ctx, mode)
	if interval <= 0 {
		return nil
	}

	// using a timer and not a ticker to avoid queued ticks when
	// a sync takes longer than the interval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("received interrupt signal, stopping client")
			return nil
		case <-timer.C:
			c.runOnce(ctx, sync.ModeIncremental)
			timer.Reset(interval)
		}
	}
}

func (c *Client) runOnce(ctx context.Context, mode sync.SyncMode) {
	_, err := c.sync.Synchronize(ctx, mode)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sync", "error", err)
	}
}

func (c *Client) Close() error {
	err := c.sync.Stop()
	c.sdk.Close()
	return err
}

package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/scriptsync/internal/utils"
)

const (
	scriptsDir  = "scripts"
	logsDir     = "logs"
	metadataDir = ".data"
	lockFile    = "scriptsync.lock"
	versionFile = "versions.json"
	historyFile = "history.db"
	ignoreFile  = "scriptsyncignore"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

// Workspace is the on-disk layout owned by the sync engine:
//
//	<root>/scripts              synchronized script tree
//	<root>/logs                 client logs
//	<root>/.data/versions.json  persisted version map
//	<root>/.data/history.db     sync history journal
//	<root>/.data/scriptsync.lock
//	<root>/scriptsyncignore     optional ignore rules
//
// The version map lives outside the script tree so a published file can never collide with it.
type Workspace struct {
	Root        string
	ScriptsDir  string
	LogsDir     string
	MetadataDir string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	return &Workspace{
		Root:        root,
		ScriptsDir:  filepath.Join(root, scriptsDir),
		LogsDir:     filepath.Join(root, logsDir),
		MetadataDir: filepath.Join(root, metadataDir),
		flock:       flock.New(filepath.Join(root, metadataDir, lockFile)),
	}, nil
}

// Setup creates the directory layout
func (w *Workspace) Setup() error {
	for _, dir := range []string{w.ScriptsDir, w.MetadataDir, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	slog.Debug("workspace", "root", w.Root, "scripts", w.ScriptsDir)
	return nil
}

// Lock takes the cross-process workspace lock without blocking.
// It returns ErrWorkspaceLocked when another process holds it.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

// Unlock releases the workspace lock if this process holds it. The lock file itself is kept;
// deleting it would let two processes lock different inodes.
func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}
	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}
	return nil
}

// VersionFilePath is where the version map is persisted
func (w *Workspace) VersionFilePath() string {
	return filepath.Join(w.MetadataDir, versionFile)
}

// HistoryPath is the sync history database
func (w *Workspace) HistoryPath() string {
	return filepath.Join(w.MetadataDir, historyFile)
}

// IgnoreFilePath holds extra gitignore style rules for published names
func (w *Workspace) IgnoreFilePath() string {
	return filepath.Join(w.Root, ignoreFile)
}

// LogFilePath is the client log file
func (w *Workspace) LogFilePath() string {
	return filepath.Join(w.LogsDir, "scriptsync.log")
}

// ScriptPath maps a published name onto the script tree, rejecting names that would escape it
func (w *Workspace) ScriptPath(name string) (string, error) {
	return utils.SafeJoin(w.ScriptsDir, name)
}

// ScriptRelPath is the inverse of ScriptPath
func (w *Workspace) ScriptRelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(w.ScriptsDir, absPath)
	if err != nil {
		return "", err
	}
	return utils.NormPath(rel), nil
}

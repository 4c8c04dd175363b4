package sync

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync: already running")
	ErrSyncAborted        = errors.New("sync: aborted")
	ErrRemoteVersions     = errors.New("sync: remote versions unavailable")
	ErrStoreWrite         = errors.New("sync: version store write failed")
	ErrWipeFailed         = errors.New("sync: full resync wipe failed")
	ErrCommitFailed       = errors.New("sync: commit failed")
	ErrInvalidPath        = errors.New("sync: invalid file name")
	ErrInvalidEntry       = errors.New("sync: invalid version entry")
)

type SyncMode int

const (
	// ModeIncremental fetches only files whose remote version is newer than the persisted one
	ModeIncremental SyncMode = iota
	// ModeFull wipes the script directory and the version map, then fetches everything
	ModeFull
)

func (m SyncMode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type CommitPolicy int

const (
	// CommitPartialCredit records the versions of every file that downloaded successfully
	CommitPartialCredit CommitPolicy = iota
	// CommitAllOrNothing leaves the persisted map untouched if any download failed
	CommitAllOrNothing
)

func (p CommitPolicy) String() string {
	switch p {
	case CommitPartialCredit:
		return "partial"
	case CommitAllOrNothing:
		return "all_or_nothing"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParseCommitPolicy(s string) (CommitPolicy, error) {
	switch s {
	case "", "partial":
		return CommitPartialCredit, nil
	case "all_or_nothing":
		return CommitAllOrNothing, nil
	default:
		return CommitPartialCredit, fmt.Errorf("sync: unknown commit policy %q", s)
	}
}

type SyncState int

const (
	StateIdle SyncState = iota
	StateFetchingRemoteVersions
	StateReconciling
	StateDownloading
	StateCommitting
	StateDone
	StateAborted
	StatePartiallyCommitted
)

var stateNames = [...]string{
	StateIdle:                   "idle",
	StateFetchingRemoteVersions: "fetching_remote_versions",
	StateReconciling:            "reconciling",
	StateDownloading:            "downloading",
	StateCommitting:             "committing",
	StateDone:                   "done",
	StateAborted:                "aborted",
	StatePartiallyCommitted:     "partially_committed",
}

func (s SyncState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether a run ends in this state
func (s SyncState) Terminal() bool {
	return s == StateDone || s == StateAborted || s == StatePartiallyCommitted
}

type FileFailure struct {
	Path string
	Err  error
}

// SyncResult summarizes one Synchronize call
type SyncResult struct {
	RunID     string
	Mode      SyncMode
	State     SyncState
	Planned   int
	Succeeded int
	Failed    int
	Aborted   bool
	Committed bool
	Failures  []FileFailure
	StartedAt time.Time
	Duration  time.Duration
}

func (r *SyncResult) HasFailures() bool {
	return r.Failed > 0
}

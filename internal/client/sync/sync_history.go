package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/openmined/scriptsync/internal/db"
	"github.com/openmined/scriptsync/internal/utils"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS sync_history (
    run_id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    state TEXT NOT NULL,
    planned INTEGER NOT NULL,
    succeeded INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    aborted INTEGER NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL, -- Store as RFC3339 string
    duration_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_started_at ON sync_history(started_at);
`

// fixed width so started_at sorts lexically
const historyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var ErrHistoryClosed = errors.New("sync: history not open")

// HistoryRecorder receives every finished Synchronize call
type HistoryRecorder interface {
	Record(result *SyncResult, syncErr error) error
}

type HistoryEntry struct {
	RunID      string
	Mode       string
	State      string
	Planned    int
	Succeeded  int
	Failed     int
	Aborted    bool
	Error      string
	StartedAt  time.Time
	DurationMs int64
}

// dbHistoryEntry is used for scanning from the database where time is stored as TEXT.
type dbHistoryEntry struct {
	RunID      string `db:"run_id"`
	Mode       string `db:"mode"`
	State      string `db:"state"`
	Planned    int    `db:"planned"`
	Succeeded  int    `db:"succeeded"`
	Failed     int    `db:"failed"`
	Aborted    bool   `db:"aborted"`
	Error      string `db:"error"`
	StartedAt  string `db:"started_at"`
	DurationMs int64  `db:"duration_ms"`
}

// SyncHistory is an append-only journal of sync runs backed by SQLite
type SyncHistory struct {
	db     *sqlx.DB
	dbPath string
}

func NewSyncHistory(dbPath string) *SyncHistory {
	return &SyncHistory{dbPath: dbPath}
}

func (h *SyncHistory) Open() error {
	if h.db != nil {
		return fmt.Errorf("sync history already open")
	}

	if err := utils.EnsureParent(h.dbPath); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := db.NewSqliteDB(db.WithPath(h.dbPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("failed to open sync history: %w", err)
	}

	if _, err := conn.Exec(historySchema); err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}

	h.db = conn
	return nil
}

func (h *SyncHistory) Close() error {
	if h.db == nil {
		return ErrHistoryClosed
	}
	err := h.db.Close()
	h.db = nil
	if err != nil {
		slog.Error("failed to close sync history", "error", err)
		return err
	}
	return nil
}

func (h *SyncHistory) Record(result *SyncResult, syncErr error) error {
	if h.db == nil {
		return ErrHistoryClosed
	}

	errText := ""
	if syncErr != nil {
		errText = syncErr.Error()
	}

	_, err := h.db.NamedExec(`
		INSERT INTO sync_history (run_id, mode, state, planned, succeeded, failed, aborted, error, started_at, duration_ms)
		VALUES (:run_id, :mode, :state, :planned, :succeeded, :failed, :aborted, :error, :started_at, :duration_ms)`,
		dbHistoryEntry{
			RunID:      result.RunID,
			Mode:       result.Mode.String(),
			State:      result.State.String(),
			Planned:    result.Planned,
			Succeeded:  result.Succeeded,
			Failed:     result.Failed,
			Aborted:    result.Aborted,
			Error:      errText,
			StartedAt:  result.StartedAt.UTC().Format(historyTimeFormat),
			DurationMs: result.Duration.Milliseconds(),
		})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", result.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first
func (h *SyncHistory) Recent(limit int) ([]HistoryEntry, error) {
	if h.db == nil {
		return nil, ErrHistoryClosed
	}
	if limit <= 0 {
		limit = 20
	}

	var rows []dbHistoryEntry
	err := h.db.Select(&rows, `
		SELECT run_id, mode, state, planned, succeeded, failed, aborted, error, started_at, duration_ms
		FROM sync_history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		startedAt, err := time.Parse(historyTimeFormat, row.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for %s: %w", row.RunID, err)
		}
		entries = append(entries, HistoryEntry{
			RunID:      row.RunID,
			Mode:       row.Mode,
			State:      row.State,
			Planned:    row.Planned,
			Succeeded:  row.Succeeded,
			Failed:     row.Failed,
			Aborted:    row.Aborted,
			Error:      row.Error,
			StartedAt:  startedAt,
			DurationMs: row.DurationMs,
		})
	}
	return entries, nil
}

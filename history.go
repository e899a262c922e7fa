package vigil

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS alerts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       TEXT NOT NULL,
	subject_id TEXT NOT NULL,
	message    TEXT NOT NULL,
	ts_ms      INTEGER NOT NULL,
	severity   TEXT NOT NULL,
	confidence REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts_ms);
CREATE INDEX IF NOT EXISTS idx_alerts_subject ON alerts(subject_id, ts_ms);
`

// AlertHistory persists alert records to a SQLite database. It implements
// Notifier, so the pipeline can record every emitted alert. Safe for
// concurrent use.
type AlertHistory struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// OpenAlertHistory opens (creating if needed) a SQLite alert history at
// path. Use ":memory:" for an in-memory store.
func OpenAlertHistory(path string) (*AlertHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	return &AlertHistory{
		db:     db,
		logger: slog.Default().With("component", "history"),
	}, nil
}

// Notify appends the alert record to the history.
func (h *AlertHistory) Notify(ctx context.Context, record AlertRecord) error {
	if err := h.check(); err != nil {
		return err
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO alerts (type, subject_id, message, ts_ms, severity, confidence) VALUES (?, ?, ?, ?, ?, ?)`,
		record.Type, record.SubjectID, record.Message, record.TimestampMs, string(record.Severity), record.Confidence)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Recent returns alerts emitted within the window, newest first.
func (h *AlertHistory) Recent(ctx context.Context, window time.Duration) ([]AlertRecord, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-window).UnixMilli()
	rows, err := h.db.QueryContext(ctx,
		`SELECT type, subject_id, message, ts_ms, severity, confidence FROM alerts WHERE ts_ms >= ? ORDER BY ts_ms DESC`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// RecentForSubject returns the most recent alerts for one subject, newest
// first, up to limit.
func (h *AlertHistory) RecentForSubject(ctx context.Context, subjectID string, limit int) ([]AlertRecord, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT type, subject_id, message, ts_ms, severity, confidence FROM alerts WHERE subject_id = ? ORDER BY ts_ms DESC LIMIT ?`,
		subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// Count returns the total number of stored alerts.
func (h *AlertHistory) Count(ctx context.Context) (int64, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	var n int64
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

// Prune deletes alerts older than the cutoff and returns how many were
// removed.
func (h *AlertHistory) Prune(ctx context.Context, before time.Time) (int64, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	res, err := h.db.ExecContext(ctx, `DELETE FROM alerts WHERE ts_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		h.logger.Info("pruned alert history", "removed", n, "before", before)
	}
	return n, nil
}

// Close closes the underlying database.
func (h *AlertHistory) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.db.Close()
}

func (h *AlertHistory) check() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	return nil
}

func scanAlerts(rows *sql.Rows) ([]AlertRecord, error) {
	var out []AlertRecord
	for rows.Next() {
		var rec AlertRecord
		var severity string
		if err := rows.Scan(&rec.Type, &rec.SubjectID, &rec.Message, &rec.TimestampMs, &severity, &rec.Confidence); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		rec.Severity = Severity(severity)
		out = append(out, rec)
	}
	return out, rows.Err()
}

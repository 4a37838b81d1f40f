package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry is one agent command and how it was answered.
type AuditEntry struct {
	ID        int64
	SessionID string
	Transport string // "stdio", "http", "ws"
	Command   string
	Argument  string
	OK        bool
	Location  string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// AuditLog stores agent commands in SQLite.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog creates an audit log using the given database.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db.conn}
}

// Record appends e. A zero CreatedAt is set to now.
func (a *AuditLog) Record(ctx context.Context, e AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO agent_commands
		 (session_id, transport, command, argument, ok, location, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Transport, e.Command, e.Argument, e.OK, e.Location, e.Error,
		e.Duration.Milliseconds(), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording agent command: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, session_id, transport, command, argument, ok, location, error, duration_ms, created_at
		 FROM agent_commands ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying agent commands: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e          AuditEntry
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Transport, &e.Command, &e.Argument,
			&e.OK, &e.Location, &e.Error, &durationMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scanning agent command: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMs)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded commands.
func (a *AuditLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_commands`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting agent commands: %w", err)
	}
	return n, nil
}

package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLog stores outcomes in a SQLite database.
type SQLiteLog struct {
	db        *sql.DB
	sessionID string
}

// NewSQLiteLog opens dbPath, creating the file and schema when needed.
func NewSQLiteLog(dbPath, sessionID string) (*SQLiteLog, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes
	// writers from concurrent batch items.
	db.SetMaxOpenConns(1)

	l := &SQLiteLog{db: db, sessionID: sessionID}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_outcomes (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		session_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		target TEXT NOT NULL,
		attribute TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_session ON audit_outcomes(session_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_timestamp ON audit_outcomes(timestamp);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// Record inserts an outcome.
func (l *SQLiteLog) Record(operation, target, attribute string, success bool) error {
	o := newOutcome(l.sessionID, operation, target, attribute, success)
	query := `
		INSERT INTO audit_outcomes (id, timestamp, session_id, operation, target, attribute, success)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := l.db.Exec(query, o.ID, o.Timestamp, o.SessionID, o.Operation, o.Target, o.Attribute, o.Success); err != nil {
		return fmt.Errorf("failed to record audit outcome: %w", err)
	}
	return nil
}

// Recent returns up to limit outcomes, newest first.
func (l *SQLiteLog) Recent(limit int) ([]Outcome, error) {
	query := `
		SELECT id, timestamp, session_id, operation, target, attribute, success
		FROM audit_outcomes
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`
	rows, err := l.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outcomes := []Outcome{}
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.ID, &o.Timestamp, &o.SessionID, &o.Operation, &o.Target, &o.Attribute, &o.Success); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Close closes the database.
func (l *SQLiteLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	identifier      TEXT NOT NULL,
	title           TEXT NOT NULL,
	source_name     TEXT NOT NULL DEFAULT '',
	artifact_kind   TEXT NOT NULL DEFAULT '',
	bytes_total     INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	stage           TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMP NOT NULL,
	finished_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_conversation ON deliveries (conversation_id);
`

// SQLiteStore is the default single-node history backend.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	query := `INSERT OR REPLACE INTO deliveries
		(id, conversation_id, identifier, title, source_name, artifact_kind, bytes_total, status, stage, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.ConversationID,
		rec.Identifier,
		rec.Title,
		rec.SourceName,
		rec.ArtifactKind,
		rec.BytesTotal,
		rec.Status,
		rec.Stage,
		rec.Error,
		rec.StartedAt,
		rec.FinishedAt,
	)
	return err
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	// KSUIDs sort chronologically, so ordering by id is ordering by time
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, identifier, title, source_name, artifact_kind, bytes_total, status, stage, error, started_at, finished_at
		 FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{}
		err := rows.Scan(
			&rec.ID, &rec.ConversationID, &rec.Identifier, &rec.Title,
			&rec.SourceName, &rec.ArtifactKind, &rec.BytesTotal,
			&rec.Status, &rec.Stage, &rec.Error,
			&rec.StartedAt, &rec.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

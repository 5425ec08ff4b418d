package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	identifier      TEXT NOT NULL,
	title           TEXT NOT NULL,
	source_name     TEXT NOT NULL DEFAULT '',
	artifact_kind   TEXT NOT NULL DEFAULT '',
	bytes_total     BIGINT NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	stage           TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deliveries_conversation ON deliveries (conversation_id);
`

// PostgresStore backs the delivery history when several instances share one
// database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	query := `INSERT INTO deliveries
		(id, conversation_id, identifier, title, source_name, artifact_kind, bytes_total, status, stage, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, stage = EXCLUDED.stage,
			error = EXCLUDED.error, finished_at = EXCLUDED.finished_at`

	_, err := s.pool.Exec(ctx, query,
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

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, identifier, title, source_name, artifact_kind, bytes_total, status, stage, error, started_at, finished_at
		 FROM deliveries ORDER BY id DESC LIMIT $1`, limit)
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

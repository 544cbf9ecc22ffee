package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

// PostgresStore is a Postgres-backed ReceiptStore. The caller opens the
// handle (importing github.com/lib/pq for the driver) and owns pooling.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle and runs migration.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS trust_receipts (
		self_hash TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		mode TEXT NOT NULL,
		previous_hash TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		record JSONB NOT NULL,
		inserted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_trust_receipts_session
		ON trust_receipts (session_id, seq);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append stores r at the next sequence position for its session.
func (s *PostgresStore) Append(ctx context.Context, r *receipt.TrustReceipt) error {
	record, err := r.ToJSON()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM trust_receipts WHERE session_id = $1`,
		r.SessionID)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("store: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trust_receipts (self_hash, session_id, seq, mode, previous_hash, timestamp, record)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.SelfHash, r.SessionID, next, string(r.Mode), r.PreviousHash, r.Timestamp, string(record))
	if err != nil {
		return fmt.Errorf("store: insert receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// LoadChain returns a session's receipts in chain order.
func (s *PostgresStore) LoadChain(ctx context.Context, sessionID string) ([]*receipt.TrustReceipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM trust_receipts WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: load chain: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []*receipt.TrustReceipt
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		r, err := receipt.FromJSON([]byte(record))
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return receipts, nil
}

// LastForSession returns the session's tail receipt.
func (s *PostgresStore) LastForSession(ctx context.Context, sessionID string) (*receipt.TrustReceipt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM trust_receipts WHERE session_id = $1 ORDER BY seq DESC LIMIT 1`, sessionID)

	var record string
	if err := row.Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: last for session: %w", err)
	}
	return receipt.FromJSON([]byte(record))
}

// Sessions lists distinct session IDs.
func (s *PostgresStore) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT session_id FROM trust_receipts ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("store: sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return sessions, nil
}

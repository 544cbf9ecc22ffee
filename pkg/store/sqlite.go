package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a file- or memory-backed ReceiptStore. Receipts are
// stored as their full JSON record alongside the chain-relevant columns,
// so a load reproduces the record byte-for-byte semantically.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite store at dsn and runs the
// schema migration. Use ":memory:" for an ephemeral store.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing database handle and runs migration.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS trust_receipts (
		self_hash TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		mode TEXT NOT NULL,
		previous_hash TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		record JSON NOT NULL,
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

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append stores r at the next sequence position for its session.
func (s *SQLiteStore) Append(ctx context.Context, r *receipt.TrustReceipt) error {
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
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM trust_receipts WHERE session_id = ?`,
		r.SessionID)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("store: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trust_receipts (self_hash, session_id, seq, mode, previous_hash, timestamp, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
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
func (s *SQLiteStore) LoadChain(ctx context.Context, sessionID string) ([]*receipt.TrustReceipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM trust_receipts WHERE session_id = ? ORDER BY seq`, sessionID)
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
func (s *SQLiteStore) LastForSession(ctx context.Context, sessionID string) (*receipt.TrustReceipt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record FROM trust_receipts WHERE session_id = ? ORDER BY seq DESC LIMIT 1`, sessionID)

	var record string
	if err := row.Scan(&record); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: last for session: %w", err)
	}
	return receipt.FromJSON([]byte(record))
}

// Sessions lists distinct session IDs in first-seen order.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM trust_receipts GROUP BY session_id ORDER BY MIN(rowid)`)
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

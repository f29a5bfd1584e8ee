package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fraudcheck/fraud"
	"fraudcheck/ml"
)

var ErrClosed = errors.New("audit store closed")

// Store is the optional audit log of rendered verdicts.
// Prediction failures are never written here.
type Store struct {
	database *sql.DB
}

type VerdictRecord struct {
	ID         string             `json:"id"`
	Type       ml.TransactionType `json:"type"`
	Amount     float64            `json:"amount"`
	OldBalance float64            `json:"old_balance"`
	NewBalance float64            `json:"new_balance"`
	Label      int                `json:"label"`
	Verdict    fraud.Verdict      `json:"verdict"`
	Cached     bool               `json:"cached"`
	CheckedAt  time.Time          `json:"checked_at"`
}

// Open creates the schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS verdicts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        outcome_id TEXT NOT NULL UNIQUE,
        type_code INTEGER NOT NULL,
        amount REAL NOT NULL,
        old_balance_orig REAL NOT NULL,
        new_balance_orig REAL NOT NULL,
        predicted_label INTEGER NOT NULL,
        cached INTEGER DEFAULT 0,
        checked_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_verdicts_checked_at ON verdicts(checked_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{database: database}, nil
}

// Record implements fraud.Sink.
func (s *Store) Record(ctx context.Context, outcome fraud.Outcome) error {
	if !outcome.OK() {
		return nil
	}
	if s.database == nil {
		return ErrClosed
	}
	_, err := s.database.ExecContext(ctx, `
        INSERT OR IGNORE INTO verdicts (
            outcome_id, type_code, amount, old_balance_orig, new_balance_orig,
            predicted_label, cached, checked_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.ID,
		outcome.Vector.TypeCode,
		outcome.Vector.Amount,
		outcome.Vector.OldBalanceOrig,
		outcome.Vector.NewBalanceOrig,
		outcome.Verdict.Label(),
		outcome.Cached,
		outcome.CheckedAt.UTC(),
	)
	return err
}

// Recent returns up to limit verdicts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]VerdictRecord, error) {
	if s.database == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT outcome_id, type_code, amount, old_balance_orig, new_balance_orig,
               predicted_label, cached, checked_at
        FROM verdicts
        ORDER BY checked_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]VerdictRecord, 0)
	for rows.Next() {
		var r VerdictRecord
		var code int
		if err := rows.Scan(&r.ID, &code, &r.Amount, &r.OldBalance, &r.NewBalance,
			&r.Label, &r.Cached, &r.CheckedAt); err != nil {
			return nil, err
		}
		r.Type = typeForCode(code)
		if r.Verdict, err = fraud.VerdictFromLabel(r.Label); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored verdicts per label.
func (s *Store) Count(ctx context.Context) (map[fraud.Verdict]int, error) {
	if s.database == nil {
		return nil, ErrClosed
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT predicted_label, COUNT(*) FROM verdicts GROUP BY predicted_label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[fraud.Verdict]int)
	for rows.Next() {
		var label, n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		verdict, err := fraud.VerdictFromLabel(label)
		if err != nil {
			return nil, err
		}
		counts[verdict] = n
	}
	return counts, rows.Err()
}

func (s *Store) Close() error {
	if s.database == nil {
		return nil
	}
	err := s.database.Close()
	s.database = nil
	return err
}

func typeForCode(code int) ml.TransactionType {
	for _, t := range ml.TransactionTypes() {
		if c, _ := t.Code(); c == code {
			return t
		}
	}
	return ml.TransactionType(code)
}

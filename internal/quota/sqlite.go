package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/flowminds/internal/db"
)

// SQLiteStore keeps counters in the quota_usage table.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore returns a store backed by d. Closing the store closes d.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Incr(ctx context.Context, client, day string, expires time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO quota_usage (client, day, uses, expires_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(client, day) DO UPDATE SET uses = uses + 1
		RETURNING uses`,
		client, day, expires.UTC().Format(time.RFC3339),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("incrementing usage: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Count(ctx context.Context, client, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT uses FROM quota_usage WHERE client = ? AND day = ?`, client, day,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying usage: %w", err)
	}
	return n, nil
}

// Prune deletes counters that expired before now.
func (s *SQLiteStore) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quota_usage WHERE expires_at < ?`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("pruning usage: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

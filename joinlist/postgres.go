package joinlist

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore keeps the join list in the channels_to_join table. The primary key on login
// makes Add an atomic append-if-absent, so no process lock is needed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database; the schema comes from db.Migrate.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts login unless it exists.
func (s *PostgresStore) Add(ctx context.Context, login string) (bool, error) {
	l, err := NormalizeLogin(login)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO channels_to_join (login) VALUES ($1) ON CONFLICT (login) DO NOTHING`, l)
	if err != nil {
		return false, fmt.Errorf("insert join list entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert join list entry: %w", err)
	}
	return n == 1, nil
}

// List returns logins ordered by insertion.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT login FROM channels_to_join ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query join list: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var login string
		if err := rows.Scan(&login); err != nil {
			return nil, err
		}
		out = append(out, login)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

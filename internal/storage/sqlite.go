package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"regwatch/internal/model"
	"regwatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddDestination inserts a destination unless its chat is already known,
// and populates CreatedAt on insert.
func (s *SQLite) AddDestination(ctx context.Context, d *model.Destination) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO destinations (chat_id, chat_type, title, created_at) VALUES (?, ?, ?, ?)`,
		d.ChatID, d.ChatType, d.Title, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert destination: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	d.CreatedAt, _ = time.Parse(timeLayout, now)
	return true, nil
}

// ListDestinations returns all registered destinations in registration order.
func (s *SQLite) ListDestinations(ctx context.Context) ([]model.Destination, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, chat_type, title, created_at FROM destinations ORDER BY created_at, chat_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query destinations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Destination
	for rows.Next() {
		var d model.Destination
		var created string
		if err := rows.Scan(&d.ChatID, &d.ChatType, &d.Title, &created); err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		d.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, d)
	}
	return out, rows.Err()
}

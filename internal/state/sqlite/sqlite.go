// Package sqlite implements state.Store on a local sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/kvchat/internal/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const usernameKey = "username"

// SQLiteStore implements state.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite state store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Username returns the persisted display name, or "" when unset.
func (s *SQLiteStore) Username(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, usernameKey).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select username: %w", err)
	}
	return name, nil
}

// SetUsername persists the display name.
func (s *SQLiteStore) SetUsername(ctx context.Context, name string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.db.ExecContext(ctx, query, usernameKey, name); err != nil {
		return fmt.Errorf("upsert username: %w", err)
	}
	return nil
}

// ListRooms returns bookmarked rooms in insertion order.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]state.SavedRoom, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM rooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	defer rows.Close()

	var rooms []state.SavedRoom
	for rows.Next() {
		var r state.SavedRoom
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return rooms, nil
}

// SaveRoom bookmarks a room, updating the title on conflict.
func (s *SQLiteStore) SaveRoom(ctx context.Context, room state.SavedRoom) error {
	query := `
		INSERT INTO rooms (id, title) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title
	`
	if _, err := s.db.ExecContext(ctx, query, room.ID, room.Title); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	return nil
}

// RemoveRoom drops a room from the local list.
func (s *SQLiteStore) RemoveRoom(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

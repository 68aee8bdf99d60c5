package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend хранит коллекции в таблице documents базы SQLite.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite открывает файл базы и готовит схему.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite не любит параллельных писателей.
	db.SetMaxOpenConns(1)
	backend, err := NewSQLiteBackend(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

// NewSQLiteBackend создаёт схему в переданной базе.
func NewSQLiteBackend(ctx context.Context, db *sql.DB) (*SQLiteBackend, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`)
	if err != nil {
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

// Get реализует Backend.
func (s *SQLiteBackend) Get(ctx context.Context, collection string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE collection = ?`, collection).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return body, err
}

// Put реализует Backend.
func (s *SQLiteBackend) Put(ctx context.Context, collection string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, body, time.Now().UTC())
	return err
}

// Close закрывает базу.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

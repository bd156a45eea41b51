package kv

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver
)

// SQLiteBackend stores documents as rows of a single table. It works with a
// local SQLite file or a remote libsql (Turso) database.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbURL string) (*SQLiteBackend, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// A single writer avoids SQLITE_BUSY between keys.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBackend{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(query)
	return err
}

func (r *SQLiteBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (r *SQLiteBackend) Save(ctx context.Context, key string, data []byte) error {
	query := `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
			  ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, key, string(data), time.Now().UTC().Format("2006-01-02 15:04:05"))
	return err
}

func (r *SQLiteBackend) Close() error {
	return r.db.Close()
}

package itemstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var sqliteDialect = dialect{
	createTable: `CREATE TABLE IF NOT EXISTS items (
		collection TEXT NOT NULL,
		id INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	selectItem:  `SELECT payload FROM items WHERE collection = ? AND id = ?`,
	upsertItem:  `INSERT INTO items(collection, id, payload) VALUES(?, ?, ?) ON CONFLICT(collection, id) DO UPDATE SET payload = excluded.payload`,
	listItems:   `SELECT id, payload FROM items WHERE collection = ?`,
	collections: `SELECT DISTINCT collection FROM items ORDER BY collection`,
}

// SQLite persists items in a single SQLite table.
type SQLite struct {
	sqlBackend
	path string
}

// NewSQLite opens (or creates) the database file at path. An empty path
// defaults to sampleplugin.db in the working directory.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "sampleplugin.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps writes serialized and lets ":memory:" share one database
	db.SetMaxOpenConns(1)
	s := &SQLite{sqlBackend: sqlBackend{db: db, driver: DriverSQLite, dialect: sqliteDialect}, path: path}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the configured database path.
func (s *SQLite) Path() string { return s.path }

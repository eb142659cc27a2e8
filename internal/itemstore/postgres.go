package itemstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/lib/pq"              // register lib/pq as the "postgres" driver
)

const (
	defaultPostgresDriver = "pgx"
	defaultPostgresDSN    = "postgres://localhost/sampleplugin?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

var postgresDialect = dialect{
	createTable: `CREATE TABLE IF NOT EXISTS items (
		collection TEXT NOT NULL,
		id BIGINT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	selectItem:  `SELECT payload FROM items WHERE collection = $1 AND id = $2`,
	upsertItem:  `INSERT INTO items(collection, id, payload) VALUES($1, $2, $3) ON CONFLICT(collection, id) DO UPDATE SET payload = EXCLUDED.payload`,
	listItems:   `SELECT id, payload FROM items WHERE collection = $1`,
	collections: `SELECT DISTINCT collection FROM items ORDER BY collection`,
}

// Postgres persists items in a PostgreSQL table.
type Postgres struct {
	sqlBackend
}

// NewPostgres connects with the named database/sql driver ("pgx" or
// "postgres" for lib/pq), pings the server and ensures the items table.
// Empty arguments fall back to the pgx driver and a local DSN.
func NewPostgres(ctx context.Context, dsn, sqlDriver string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	if sqlDriver == "" {
		sqlDriver = defaultPostgresDriver
	}
	openMu.Lock()
	db, err := sqlOpen(sqlDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	p := &Postgres{sqlBackend: sqlBackend{db: db, driver: DriverPostgres, dialect: postgresDialect}}
	if err := p.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

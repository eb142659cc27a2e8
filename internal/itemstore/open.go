package itemstore

import (
	"context"
	"fmt"
)

// Config selects and parameterises a backend.
type Config struct {
	Driver         Driver
	SQLitePath     string
	PostgresDSN    string
	PostgresDriver string
}

// Open constructs the backend named by cfg.Driver. Defaults to sqlite.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN, cfg.PostgresDriver)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

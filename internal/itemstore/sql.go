package itemstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sampleplugin/pkg/pluginapi"
)

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	createTable string
	selectItem  string
	upsertItem  string
	listItems   string
	collections string
}

// sqlBackend stores one row per item with the item encoded as JSON.
// Identifiers are stored as the int64 bit pattern of the uint64 id, so
// pluginapi.UnsetID survives the round trip through BIGINT columns.
type sqlBackend struct {
	db      *sql.DB
	driver  Driver
	dialect dialect
}

func (s *sqlBackend) Driver() Driver { return s.driver }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *sqlBackend) DB() *sql.DB { return s.db }

func (s *sqlBackend) Close() error { return s.db.Close() }

func encodeID(id uint64) int64 { return int64(id) }

func decodeID(id int64) uint64 { return uint64(id) }

func (s *sqlBackend) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}

func (s *sqlBackend) Get(ctx context.Context, collection string, id uint64) (pluginapi.Item, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.dialect.selectItem, collection, encodeID(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return pluginapi.Item{}, false, nil
	}
	if err != nil {
		return pluginapi.Item{}, false, fmt.Errorf("select item: %w", err)
	}
	item, err := decodeItem(payload)
	if err != nil {
		return pluginapi.Item{}, false, err
	}
	item.ID = id
	return item, true, nil
}

func (s *sqlBackend) Put(ctx context.Context, collection string, item pluginapi.Item) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsertItem, collection, encodeID(item.ID), string(payload)); err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func (s *sqlBackend) List(ctx context.Context, collection string) ([]pluginapi.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listItems, collection)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []pluginapi.Item
	for rows.Next() {
		var (
			id      int64
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item, err := decodeItem(payload)
		if err != nil {
			return nil, err
		}
		item.ID = decodeID(id)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	sortItems(out)
	return out, nil
}

func (s *sqlBackend) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.collections)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return out, nil
}

func decodeItem(payload []byte) (pluginapi.Item, error) {
	var item pluginapi.Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return pluginapi.Item{}, fmt.Errorf("decode item: %w", err)
	}
	return item, nil
}

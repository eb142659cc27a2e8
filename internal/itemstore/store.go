// Package itemstore adapts storage engines to the host API consumed by
// plugins. Each backend keeps items partitioned by collection and keyed by
// id; the API layer adds merge semantics and role checks on top.
package itemstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sampleplugin/pkg/pluginapi"
)

// Backend persists items by collection and id.
type Backend interface {
	Get(ctx context.Context, collection string, id uint64) (pluginapi.Item, bool, error)
	Put(ctx context.Context, collection string, item pluginapi.Item) error
	List(ctx context.Context, collection string) ([]pluginapi.Item, error)
	Collections(ctx context.Context) ([]string, error)
	Driver() Driver
	Close() error
}

// Driver identifies a concrete backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// ErrEmptyCollection is returned when a collection name is blank.
var ErrEmptyCollection = errors.New("collection name required")

func checkCollection(collection string) error {
	if strings.TrimSpace(collection) == "" {
		return ErrEmptyCollection
	}
	return nil
}

func sortItems(items []pluginapi.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

// rolePrefix is prepended to a role name to form the user flag checked by
// CheckRole.
const rolePrefix = "role_is_"

var _ pluginapi.API = (*API)(nil)

// API implements pluginapi.API on top of a Backend.
type API struct {
	backend Backend
}

// NewAPI wraps backend.
func NewAPI(backend Backend) *API {
	return &API{backend: backend}
}

// Backend returns the wrapped backend.
func (a *API) Backend() Backend { return a.backend }

// GetItem returns a copy of the stored item.
func (a *API) GetItem(ctx context.Context, collection string, id uint64) (pluginapi.Item, bool, error) {
	if err := checkCollection(collection); err != nil {
		return pluginapi.Item{}, false, err
	}
	item, ok, err := a.backend.Get(ctx, collection, id)
	if err != nil {
		return pluginapi.Item{}, false, fmt.Errorf("get %s/%d: %w", collection, id, err)
	}
	return item, ok, nil
}

// SetItem stores item. With merge the fields of item are overlaid on the
// existing record, otherwise the record is replaced.
func (a *API) SetItem(ctx context.Context, collection string, item pluginapi.Item, merge bool) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if merge {
		existing, ok, err := a.backend.Get(ctx, collection, item.ID)
		if err != nil {
			return fmt.Errorf("get %s/%d: %w", collection, item.ID, err)
		}
		if ok {
			item = existing.Merge(item)
		}
	}
	if err := a.backend.Put(ctx, collection, item.Clone()); err != nil {
		return fmt.Errorf("put %s/%d: %w", collection, item.ID, err)
	}
	return nil
}

// CheckRole reports whether user carries the bool flag role_is_<role>.
func (a *API) CheckRole(_ context.Context, user *pluginapi.Item, role string) bool {
	if user == nil || role == "" {
		return false
	}
	return user.SafeBool(rolePrefix+role, false)
}

// GrantRole sets the role flag on user.
func GrantRole(user *pluginapi.Item, role string) {
	user.SetBool(rolePrefix+role, true)
}

package itemstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sampleplugin/pkg/pluginapi"
)

func newBackends(t *testing.T) map[string]Backend {
	t.Helper()
	sqlite, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "items.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Backend{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestBackendContract(t *testing.T) {
	ctx := context.Background()
	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := backend.Get(ctx, "config", 1); err != nil || ok {
				t.Fatalf("expected missing item, ok=%v err=%v", ok, err)
			}

			item := pluginapi.Item{ID: 2, Strs: map[string]string{"xml": "<a/>"}, Bools: map[string]bool{"on": true}, U64s: map[string]uint64{"n": 7}}
			if err := backend.Put(ctx, "config", item); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, ok, err := backend.Get(ctx, "config", 2)
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if diff := cmp.Diff(item, got); diff != "" {
				t.Fatalf("item mismatch (-want +got):\n%s", diff)
			}

			unset := pluginapi.NewItem()
			unset.SetStr("xml", "sentinel")
			if err := backend.Put(ctx, "config", unset); err != nil {
				t.Fatalf("put unset: %v", err)
			}
			got, ok, err = backend.Get(ctx, "config", pluginapi.UnsetID)
			if err != nil || !ok || got.ID != pluginapi.UnsetID || got.SafeStr("xml", "") != "sentinel" {
				t.Fatalf("expected sentinel id round trip, got %+v ok=%v err=%v", got, ok, err)
			}

			replaced := pluginapi.Item{ID: 2, Strs: map[string]string{"xml": "new"}}
			if err := backend.Put(ctx, "config", replaced); err != nil {
				t.Fatalf("replace: %v", err)
			}
			got, _, _ = backend.Get(ctx, "config", 2)
			if diff := cmp.Diff(replaced, got); diff != "" {
				t.Fatalf("replace mismatch (-want +got):\n%s", diff)
			}

			if err := backend.Put(ctx, "users", pluginapi.Item{ID: 1}); err != nil {
				t.Fatalf("put user: %v", err)
			}
			items, err := backend.List(ctx, "config")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(items) != 2 || items[0].ID != 2 || items[1].ID != pluginapi.UnsetID {
				t.Fatalf("unexpected list %+v", items)
			}
			names, err := backend.Collections(ctx)
			if err != nil {
				t.Fatalf("collections: %v", err)
			}
			if diff := cmp.Diff([]string{"config", "users"}, names); diff != "" {
				t.Fatalf("collections mismatch (-want +got):\n%s", diff)
			}

			if err := backend.Put(ctx, " ", pluginapi.Item{ID: 1}); !errors.Is(err, ErrEmptyCollection) {
				t.Fatalf("expected ErrEmptyCollection, got %v", err)
			}
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	item := pluginapi.Item{ID: 1, Strs: map[string]string{"xml": "a"}}
	if err := m.Put(ctx, "config", item); err != nil {
		t.Fatalf("put: %v", err)
	}
	item.Strs["xml"] = "mutated"
	got, _, _ := m.Get(ctx, "config", 1)
	if got.SafeStr("xml", "") != "a" {
		t.Fatalf("stored item aliased caller map")
	}
	got.Strs["xml"] = "changed"
	again, _, _ := m.Get(ctx, "config", 1)
	if again.SafeStr("xml", "") != "a" {
		t.Fatalf("returned item aliased stored map")
	}
	if m.Driver() != DriverMemory || m.Close() != nil {
		t.Fatalf("unexpected driver or close error")
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "items.db")
	s, err := NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Path() != path || s.Driver() != DriverSQLite || s.DB() == nil {
		t.Fatalf("unexpected sqlite accessors")
	}
	if err := s.Put(ctx, "config", pluginapi.Item{ID: 9, Strs: map[string]string{"xml": "old"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s, err = NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	got, ok, err := s.Get(ctx, "config", 9)
	if err != nil || !ok || got.SafeStr("xml", "") != "old" {
		t.Fatalf("expected item to survive reopen, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestSQLiteCorruptPayload(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "items.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := s.DB().ExecContext(ctx, `INSERT INTO items(collection, id, payload) VALUES('config', 1, 'not json')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := s.Get(ctx, "config", 1); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := s.List(ctx, "config"); err == nil {
		t.Fatalf("expected decode error from list")
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || b.Driver() != DriverMemory {
		t.Fatalf("expected memory backend, got %v %v", b, err)
	}
	b, err = Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "default.db")})
	if err != nil || b.Driver() != DriverSQLite {
		t.Fatalf("expected sqlite default, got %v %v", b, err)
	}
	_ = b.Close()
	if _, err := Open(ctx, Config{Driver: "bogus"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

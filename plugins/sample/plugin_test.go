package sample

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sampleplugin/pkg/pluginapi"
)

func configItem(id uint64, xml string) pluginapi.Item {
	item := pluginapi.NewItem()
	item.ID = id
	if xml != "" {
		item.SetStr("xml", xml)
	}
	return item
}

func TestPluginNameVersion(t *testing.T) {
	p := New()
	if p.Name() != "sampleplugin" {
		t.Fatalf("expected name sampleplugin, got %s", p.Name())
	}
	if p.Version() == "" {
		t.Fatalf("expected non-empty version")
	}
}

func TestRegisterAddsPluginOnce(t *testing.T) {
	pool := &stubPool{}
	if err := Register(pool); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(pool.plugins) != 1 {
		t.Fatalf("expected one plugin, got %d", len(pool.plugins))
	}
	if _, ok := pool.plugins[0].(*Plugin); !ok {
		t.Fatalf("unexpected plugin type %T", pool.plugins[0])
	}
}

func TestRegisterWithAppliesOptions(t *testing.T) {
	pool := &stubPool{}
	log := &captureLogger{}
	if err := RegisterWith(WithLogger(log))(pool); err != nil {
		t.Fatalf("register: %v", err)
	}
	p, ok := pool.plugins[0].(*Plugin)
	if !ok || p.logger != log {
		t.Fatalf("expected plugin with custom logger, got %#v", pool.plugins[0])
	}
}

func TestPostEditIgnoresNonMatchingEvents(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name       string
		hndl       string
		collection string
		del        bool
	}{
		{"wrong handle", "other_post_edit", "config", true},
		{"wrong collection", PostEditHandle, "users", true},
		{"not a deletion", PostEditHandle, "config", false},
		{"nothing matches", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newStubAPI()
			api.put("config", configItem(1, "old"))
			New().ItemPostEditHook(ctx, api, tc.hndl, tc.collection, 1, tc.del)
			if api.gets != 0 || len(api.sets) != 0 {
				t.Fatalf("expected no database access, got %d gets %d sets", api.gets, len(api.sets))
			}
		})
	}
}

func TestPostEditTogglesXML(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		initial string
		want    string
	}{
		{"absent", "", "new"},
		{"old", "old", "new"},
		{"new", "new", "old"},
		{"arbitrary", "<doc/>", "old"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newStubAPI()
			api.put("config", configItem(7, tc.initial))
			New().ItemPostEditHook(ctx, api, PostEditHandle, "config", 7, true)
			if len(api.sets) != 1 {
				t.Fatalf("expected one write, got %d", len(api.sets))
			}
			call := api.sets[0]
			if call.collection != "config" || call.merge {
				t.Fatalf("expected full replacement into config, got %+v", call)
			}
			if got := call.item.SafeStr("xml", ""); got != tc.want {
				t.Fatalf("expected xml %q, got %q", tc.want, got)
			}
			if call.item.ID != 7 {
				t.Fatalf("expected id 7, got %d", call.item.ID)
			}
		})
	}
}

func TestPostEditPreservesOtherFields(t *testing.T) {
	api := newStubAPI()
	item := configItem(3, "old")
	item.SetStr("name", "main")
	item.SetBool("enabled", true)
	api.put("config", item)

	New().ItemPostEditHook(context.Background(), api, PostEditHandle, "config", 3, true)

	want := item.Clone()
	want.SetStr("xml", "new")
	if diff := cmp.Diff(want, api.items["config"][3]); diff != "" {
		t.Fatalf("stored item mismatch (-want +got):\n%s", diff)
	}
}

func TestPostEditRoundTripsOverTwoApplications(t *testing.T) {
	ctx := context.Background()
	for _, start := range []string{"new", "old"} {
		api := newStubAPI()
		api.put("config", configItem(5, start))
		p := New()
		p.ItemPostEditHook(ctx, api, PostEditHandle, "config", 5, true)
		if api.items["config"][5].SafeStr("xml", "") == start {
			t.Fatalf("single application should change %q", start)
		}
		p.ItemPostEditHook(ctx, api, PostEditHandle, "config", 5, true)
		if got := api.items["config"][5].SafeStr("xml", ""); got != start {
			t.Fatalf("expected %q after two toggles, got %q", start, got)
		}
	}
}

func TestPostEditMissingItemIsNoop(t *testing.T) {
	api := newStubAPI()
	log := &captureLogger{}
	New(WithLogger(log)).ItemPostEditHook(context.Background(), api, PostEditHandle, "config", 99, true)
	if api.gets != 1 {
		t.Fatalf("expected one lookup, got %d", api.gets)
	}
	if len(api.sets) != 0 {
		t.Fatalf("expected no write for missing item")
	}
	if len(log.calls) != 1 || log.calls[0] != "i:no item" {
		t.Fatalf("expected info log for missing item, got %v", log.calls)
	}
}

func TestPostEditBackendErrorsAreLogged(t *testing.T) {
	ctx := context.Background()

	api := newStubAPI()
	api.getErr = errBackend
	log := &captureLogger{}
	New(WithLogger(log)).ItemPostEditHook(ctx, api, PostEditHandle, "config", 1, true)
	if len(api.sets) != 0 {
		t.Fatalf("expected no write after failed lookup")
	}
	if len(log.calls) != 1 || log.calls[0] != "e:fetch item" {
		t.Fatalf("unexpected logs %v", log.calls)
	}

	api = newStubAPI()
	api.put("config", configItem(1, ""))
	api.setErr = errBackend
	log = &captureLogger{}
	New(WithLogger(log)).ItemPostEditHook(ctx, api, PostEditHandle, "config", 1, true)
	if len(log.calls) != 1 || log.calls[0] != "e:store item" {
		t.Fatalf("unexpected logs %v", log.calls)
	}
}

func TestPostEditDoesNotAliasFetchedItem(t *testing.T) {
	shared := configItem(2, "old")
	api := &aliasingAPI{item: shared}
	New().ItemPostEditHook(context.Background(), api, PostEditHandle, "config", 2, true)
	if got := shared.SafeStr("xml", ""); got != "old" {
		t.Fatalf("host-owned item mutated to %q", got)
	}
	if got := api.stored.SafeStr("xml", ""); got != "new" {
		t.Fatalf("expected stored xml new, got %q", got)
	}
}

// aliasingAPI hands out its own maps without copying.
type aliasingAPI struct {
	item   pluginapi.Item
	stored pluginapi.Item
}

func (a *aliasingAPI) GetItem(context.Context, string, uint64) (pluginapi.Item, bool, error) {
	return a.item, true, nil
}

func (a *aliasingAPI) SetItem(_ context.Context, _ string, item pluginapi.Item, _ bool) error {
	a.stored = item
	return nil
}

func (a *aliasingAPI) CheckRole(context.Context, *pluginapi.Item, string) bool { return true }

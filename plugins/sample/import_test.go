package sample

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sampleplugin/pkg/pluginapi"
)

func adminAPI() *stubAPI {
	api := newStubAPI()
	api.roles["admin"] = true
	return api
}

func postedXML(xml string) pluginapi.Item {
	item := pluginapi.NewItem()
	item.SetStr("xml", xml)
	return item
}

func TestImportStoresItemWithQueryID(t *testing.T) {
	api := adminAPI()
	user := pluginapi.NewItem()
	resp := New().RouteURLPostHook(context.Background(), api, ImportHandle, &user, "id=42", postedXML("<a/>"))
	if resp != pluginapi.WebResponseOK {
		t.Fatalf("expected Ok, got %s", resp)
	}
	if len(api.sets) != 1 {
		t.Fatalf("expected one write, got %d", len(api.sets))
	}
	want := setCall{collection: "config", item: pluginapi.Item{ID: 42, Strs: map[string]string{"xml": "<a/>"}}, merge: false}
	if diff := cmp.Diff(want, api.sets[0], cmp.AllowUnexported(setCall{})); diff != "" {
		t.Fatalf("write mismatch (-want +got):\n%s", diff)
	}
}

func TestImportWithoutIDUsesUnsetSentinel(t *testing.T) {
	api := adminAPI()
	user := pluginapi.NewItem()
	for _, query := range []string{"", "other=1"} {
		api.sets = nil
		resp := New().RouteURLPostHook(context.Background(), api, ImportHandle, &user, query, postedXML("x"))
		if resp != pluginapi.WebResponseOK {
			t.Fatalf("query %q: expected Ok, got %s", query, resp)
		}
		if api.sets[0].item.ID != pluginapi.UnsetID {
			t.Fatalf("query %q: expected unset id, got %d", query, api.sets[0].item.ID)
		}
	}
}

func TestImportMissingXMLStoresEmptyString(t *testing.T) {
	api := adminAPI()
	user := pluginapi.NewItem()
	resp := New().RouteURLPostHook(context.Background(), api, ImportHandle, &user, "id=1", pluginapi.NewItem())
	if resp != pluginapi.WebResponseOK {
		t.Fatalf("expected Ok, got %s", resp)
	}
	xml, ok := api.sets[0].item.Strs["xml"]
	if !ok || xml != "" {
		t.Fatalf("expected explicit empty xml field, got %q (present=%v)", xml, ok)
	}
}

func TestImportRejectsNonAdmin(t *testing.T) {
	api := newStubAPI()
	user := pluginapi.NewItem()
	p := New()
	if resp := p.RouteURLPostHook(context.Background(), api, ImportHandle, &user, "id=42", postedXML("<a/>")); resp != pluginapi.WebResponseUnauthorized {
		t.Fatalf("expected Unauthorized, got %s", resp)
	}
	if resp := p.RouteURLPostHook(context.Background(), adminAPI(), ImportHandle, nil, "id=42", postedXML("<a/>")); resp != pluginapi.WebResponseUnauthorized {
		t.Fatalf("expected Unauthorized for anonymous caller, got %s", resp)
	}
	if len(api.sets) != 0 {
		t.Fatalf("expected no write for unauthorized caller")
	}
}

func TestImportMalformedQueryIsBadRequest(t *testing.T) {
	user := pluginapi.NewItem()
	for _, query := range []string{"id=abc", "id=", "id=-1", "id=18446744073709551616", "id=1&id=2", "id=%zz", "id=1;x=2", "%69d=1&id=2"} {
		api := adminAPI()
		log := &captureLogger{}
		resp := New(WithLogger(log)).RouteURLPostHook(context.Background(), api, ImportHandle, &user, query, postedXML("<a/>"))
		if resp != pluginapi.WebResponseBadRequest {
			t.Fatalf("query %q: expected BadRequest, got %s", query, resp)
		}
		if len(api.sets) != 0 {
			t.Fatalf("query %q: expected no write", query)
		}
		if len(log.calls) != 1 || log.calls[0] != "w:reject import" {
			t.Fatalf("query %q: unexpected logs %v", query, log.calls)
		}
	}
}

func TestImportStoreFailureIsInternalError(t *testing.T) {
	api := adminAPI()
	api.setErr = errBackend
	user := pluginapi.NewItem()
	resp := New().RouteURLPostHook(context.Background(), api, ImportHandle, &user, "id=1", postedXML("x"))
	if resp != pluginapi.WebResponseInternalError {
		t.Fatalf("expected InternalError, got %s", resp)
	}
}

func TestImportOtherHandleNotImplemented(t *testing.T) {
	api := adminAPI()
	user := pluginapi.NewItem()
	resp := New().RouteURLPostHook(context.Background(), api, "other_import", &user, "id=1", postedXML("x"))
	if resp != pluginapi.WebResponseNotImplemented {
		t.Fatalf("expected NotImplemented, got %s", resp)
	}
	if len(api.sets) != 0 {
		t.Fatalf("expected no write")
	}
}

func TestParseImportQuery(t *testing.T) {
	params, err := ParseImportQuery("id=18446744073709551614&extra=x")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if params.ID != 18446744073709551614 {
		t.Fatalf("unexpected id %d", params.ID)
	}

	_, err = ParseImportQuery("id=nope")
	if !errors.Is(err, ErrMalformedQuery) {
		t.Fatalf("expected ErrMalformedQuery, got %v", err)
	}
	var qerr *QueryError
	if !errors.As(err, &qerr) || qerr.Param != "id" || qerr.Value != "nope" {
		t.Fatalf("expected QueryError for id, got %#v", err)
	}

	if qerr.Error() == "" {
		t.Fatalf("expected error message")
	}
}

func TestParseImportQueryIgnoresUnrelatedParams(t *testing.T) {
	cases := []struct {
		query string
		want  uint64
	}{
		{"foo=%zz&id=3", 3},
		{"id=3&foo=%", 3},
		{"a=%&&b", pluginapi.UnsetID},
		{"x=1;y=2", pluginapi.UnsetID},
		{"%69%64=12", 12},
		{"id=%31%32", 12},
		{"", pluginapi.UnsetID},
	}
	for _, tc := range cases {
		params, err := ParseImportQuery(tc.query)
		if err != nil {
			t.Fatalf("query %q: %v", tc.query, err)
		}
		if params.ID != tc.want {
			t.Fatalf("query %q: expected id %d, got %d", tc.query, tc.want, params.ID)
		}
	}
}

func TestParseImportQueryKeepsBadEscapesInID(t *testing.T) {
	var qerr *QueryError
	_, err := ParseImportQuery("id=%zz")
	if !errors.As(err, &qerr) || qerr.Value != "%zz" {
		t.Fatalf("expected literal escape in error value, got %v", err)
	}
	_, err = ParseImportQuery("id=1;x=2")
	if !errors.As(err, &qerr) || qerr.Value != "1;x=2" {
		t.Fatalf("expected semicolon kept in id value, got %v", err)
	}
}

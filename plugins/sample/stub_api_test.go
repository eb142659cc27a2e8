package sample

import (
	"context"
	"errors"

	"sampleplugin/pkg/pluginapi"
)

type setCall struct {
	collection string
	item       pluginapi.Item
	merge      bool
}

type stubAPI struct {
	items  map[string]map[uint64]pluginapi.Item
	gets   int
	sets   []setCall
	roles  map[string]bool
	getErr error
	setErr error
}

func newStubAPI() *stubAPI {
	return &stubAPI{items: make(map[string]map[uint64]pluginapi.Item), roles: make(map[string]bool)}
}

func (s *stubAPI) put(collection string, item pluginapi.Item) {
	if s.items[collection] == nil {
		s.items[collection] = make(map[uint64]pluginapi.Item)
	}
	s.items[collection][item.ID] = item
}

func (s *stubAPI) GetItem(_ context.Context, collection string, id uint64) (pluginapi.Item, bool, error) {
	s.gets++
	if s.getErr != nil {
		return pluginapi.Item{}, false, s.getErr
	}
	item, ok := s.items[collection][id]
	if !ok {
		return pluginapi.Item{}, false, nil
	}
	return item.Clone(), true, nil
}

func (s *stubAPI) SetItem(_ context.Context, collection string, item pluginapi.Item, merge bool) error {
	s.sets = append(s.sets, setCall{collection: collection, item: item, merge: merge})
	if s.setErr != nil {
		return s.setErr
	}
	s.put(collection, item.Clone())
	return nil
}

func (s *stubAPI) CheckRole(_ context.Context, user *pluginapi.Item, role string) bool {
	if user == nil {
		return false
	}
	return s.roles[role]
}

var errBackend = errors.New("backend down")

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

type stubPool struct{ plugins []pluginapi.Plugin }

func (p *stubPool) Register(plugin pluginapi.Plugin) error {
	p.plugins = append(p.plugins, plugin)
	return nil
}

package itemstore

import (
	"context"
	"sort"
	"sync"

	"sampleplugin/pkg/pluginapi"
)

// Memory keeps items in process memory. Get and Put are atomic per item.
type Memory struct {
	mu    sync.RWMutex
	items map[string]map[uint64]pluginapi.Item
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[uint64]pluginapi.Item)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Get(_ context.Context, collection string, id uint64) (pluginapi.Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[collection][id]
	if !ok {
		return pluginapi.Item{}, false, nil
	}
	return item.Clone(), true, nil
}

func (m *Memory) Put(_ context.Context, collection string, item pluginapi.Item) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.items[collection]
	if !ok {
		bucket = make(map[uint64]pluginapi.Item)
		m.items[collection] = bucket
	}
	bucket[item.ID] = item.Clone()
	return nil
}

func (m *Memory) List(_ context.Context, collection string) ([]pluginapi.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pluginapi.Item, 0, len(m.items[collection]))
	for _, item := range m.items[collection] {
		out = append(out, item.Clone())
	}
	sortItems(out)
	return out, nil
}

func (m *Memory) Collections(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.items))
	for name := range m.items {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

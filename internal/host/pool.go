// Package host holds the runtime side of the plugin contract: the pool
// plugins register into and the instrumentation wrapped around hook calls.
package host

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"sampleplugin/pkg/pluginapi"
)

var _ pluginapi.Pool = (*Pool)(nil)

// ErrPluginNotFound is returned by Get when no plugin has the given name.
var ErrPluginNotFound = errors.New("plugin not found")

// PluginMetadata describes a registered plugin.
type PluginMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Pool accumulates plugins during load. It is populated once and then read
// from concurrent hook invocations.
type Pool struct {
	mu      sync.RWMutex
	plugins map[string]pluginapi.Plugin
	order   []string
}

// NewPool constructs an empty plugin pool.
func NewPool() *Pool {
	return &Pool{plugins: make(map[string]pluginapi.Plugin)}
}

// Register adds a plugin. Nil plugins and duplicate names are rejected.
func (p *Pool) Register(plugin pluginapi.Plugin) error {
	if plugin == nil {
		return fmt.Errorf("plugin cannot be nil")
	}
	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.plugins[name]; ok {
		return fmt.Errorf("plugin %s already registered", name)
	}
	p.plugins[name] = plugin
	p.order = append(p.order, name)
	return nil
}

// Load runs each entry point once, in order, stopping at the first error.
func (p *Pool) Load(entries ...pluginapi.RegisterFunc) error {
	for i, entry := range entries {
		if entry == nil {
			return fmt.Errorf("entry point %d is nil", i)
		}
		if err := entry(p); err != nil {
			return fmt.Errorf("load entry point %d: %w", i, err)
		}
	}
	return nil
}

// Get returns the plugin registered under name.
func (p *Pool) Get(name string) (pluginapi.Plugin, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	plugin, ok := p.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return plugin, nil
}

// Plugins returns registered plugins in registration order.
func (p *Pool) Plugins() []pluginapi.Plugin {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]pluginapi.Plugin, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.plugins[name])
	}
	return out
}

// Metadata returns name and version of every plugin sorted by name.
func (p *Pool) Metadata() []PluginMetadata {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PluginMetadata, 0, len(p.plugins))
	for _, plugin := range p.plugins {
		out = append(out, PluginMetadata{Name: plugin.Name(), Version: plugin.Version()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

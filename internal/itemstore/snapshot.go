package itemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sampleplugin/pkg/pluginapi"
)

// Snapshot is a point-in-time copy of every collection in a backend.
type Snapshot struct {
	TakenAt     time.Time                   `json:"taken_at"`
	Collections map[string][]pluginapi.Item `json:"collections"`
}

// Export copies all items out of backend. Items are ordered by id.
func Export(ctx context.Context, backend Backend) (Snapshot, error) {
	names, err := backend.Collections(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{TakenAt: time.Now().UTC(), Collections: make(map[string][]pluginapi.Item, len(names))}
	for _, name := range names {
		items, err := backend.List(ctx, name)
		if err != nil {
			return Snapshot{}, fmt.Errorf("list %s: %w", name, err)
		}
		snap.Collections[name] = items
	}
	return snap, nil
}

// Import writes every item in snap into backend, replacing records with the
// same collection and id. It returns the number of items written.
func Import(ctx context.Context, backend Backend, snap Snapshot) (int, error) {
	n := 0
	for name, items := range snap.Collections {
		for _, item := range items {
			if err := backend.Put(ctx, name, item); err != nil {
				return n, fmt.Errorf("restore %s/%d: %w", name, item.ID, err)
			}
			n++
		}
	}
	return n, nil
}

// Encode writes snap as JSON.
func (s Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// DecodeSnapshot reads a JSON snapshot.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

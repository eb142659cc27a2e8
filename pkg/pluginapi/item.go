package pluginapi

import "math"

// UnsetID marks an item whose identifier was not supplied by the caller.
const UnsetID uint64 = math.MaxUint64

// Item is the host's unit of persisted data: a sparse record keyed by ID
// holding named values. Plugins receive copies and hand them back to the
// host for persistence.
type Item struct {
	ID    uint64            `json:"id"`
	Strs  map[string]string `json:"strs,omitempty"`
	Bools map[string]bool   `json:"bools,omitempty"`
	U64s  map[string]uint64 `json:"u64s,omitempty"`
}

// NewItem returns an empty item carrying the UnsetID sentinel.
func NewItem() Item {
	return Item{ID: UnsetID}
}

// SafeStr returns the named string field or def when it is absent.
func (i Item) SafeStr(key, def string) string {
	if v, ok := i.Strs[key]; ok {
		return v
	}
	return def
}

// SetStr stores a string field.
func (i *Item) SetStr(key, value string) {
	if i.Strs == nil {
		i.Strs = make(map[string]string)
	}
	i.Strs[key] = value
}

// SafeBool returns the named bool field or def when it is absent.
func (i Item) SafeBool(key string, def bool) bool {
	if v, ok := i.Bools[key]; ok {
		return v
	}
	return def
}

// SetBool stores a bool field.
func (i *Item) SetBool(key string, value bool) {
	if i.Bools == nil {
		i.Bools = make(map[string]bool)
	}
	i.Bools[key] = value
}

// SafeU64 returns the named integer field or def when it is absent.
func (i Item) SafeU64(key string, def uint64) uint64 {
	if v, ok := i.U64s[key]; ok {
		return v
	}
	return def
}

// SetU64 stores an integer field.
func (i *Item) SetU64(key string, value uint64) {
	if i.U64s == nil {
		i.U64s = make(map[string]uint64)
	}
	i.U64s[key] = value
}

// Clone returns a deep copy so the receiver can be mutated without
// affecting the original.
func (i Item) Clone() Item {
	out := Item{ID: i.ID}
	if i.Strs != nil {
		out.Strs = make(map[string]string, len(i.Strs))
		for k, v := range i.Strs {
			out.Strs[k] = v
		}
	}
	if i.Bools != nil {
		out.Bools = make(map[string]bool, len(i.Bools))
		for k, v := range i.Bools {
			out.Bools[k] = v
		}
	}
	if i.U64s != nil {
		out.U64s = make(map[string]uint64, len(i.U64s))
		for k, v := range i.U64s {
			out.U64s[k] = v
		}
	}
	return out
}

// Merge overlays the fields of other on a copy of the receiver. The
// identifier of other wins.
func (i Item) Merge(other Item) Item {
	out := i.Clone()
	out.ID = other.ID
	for k, v := range other.Strs {
		out.SetStr(k, v)
	}
	for k, v := range other.Bools {
		out.SetBool(k, v)
	}
	for k, v := range other.U64s {
		out.SetU64(k, v)
	}
	return out
}

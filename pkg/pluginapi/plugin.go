package pluginapi

import "context"

// API is the host surface a plugin calls into.
type API interface {
	// GetItem fetches an item by collection and id. The bool is false when
	// no such item exists.
	GetItem(ctx context.Context, collection string, id uint64) (Item, bool, error)
	// SetItem persists item into collection. When merge is false the stored
	// record is replaced entirely.
	SetItem(ctx context.Context, collection string, item Item, merge bool) error
	// CheckRole reports whether the authenticated user holds role. A nil
	// user never holds any role.
	CheckRole(ctx context.Context, user *Item, role string) bool
}

// Plugin is the fixed capability set a host invokes. Hooks are called
// concurrently from independent requests; implementations must not rely on
// call ordering between hooks.
type Plugin interface {
	Name() string
	Version() string

	PingTest()

	// ItemPreEditHook runs before an item is created, edited or deleted.
	// item is an exclusive handle the plugin may mutate.
	ItemPreEditHook(ctx context.Context, api API, hndl string, user *Item, collection string, oldItem *Item, item *Item, del, merge bool) ProcessResult
	// ItemPostEditHook runs after an item was persisted or deleted.
	ItemPostEditHook(ctx context.Context, api API, hndl string, collection string, id uint64, del bool)
	// ItemAuthHook authorizes access to an item.
	ItemAuthHook(ctx context.Context, api API, hndl string, user *Item, collection string, id uint64, newItem *Item, del bool) bool
	// ItemListFilterHook receives ownership of items and returns the map
	// the host should hand to the caller.
	ItemListFilterHook(ctx context.Context, api API, hndl string, user *Item, collection, listContext string, items map[uint64]Item) map[uint64]Item

	RouteURLHook(ctx context.Context, api API, hndl string, user *Item, query string) WebResponse
	RouteURLPostHook(ctx context.Context, api API, hndl string, user *Item, query string, posted Item) WebResponse
	RouteUnprotectedURLHook(ctx context.Context, api API, hndl string, user *Item, query string) WebResponse
	RouteUnprotectedURLPostHook(ctx context.Context, api API, hndl string, user *Item, query string, posted Item) WebResponse

	// CollectionReadHook may transform item before it is returned from a
	// collection read. It reports whether it did so.
	CollectionReadHook(ctx context.Context, api API, hndl string, collection string, item *Item) bool
	CallOTPHook(ctx context.Context, api API, hndl string, item Item)
}

// Pool collects plugins at load time.
type Pool interface {
	Register(Plugin) error
}

// RegisterFunc is the entry point a loadable plugin exposes. The host calls
// it exactly once before invoking any hook.
type RegisterFunc func(Pool) error

// Logger is the structured logger shared by plugins and the host.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}

const Version = "v1"

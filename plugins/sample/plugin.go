// Package sample implements the reference plugin shipped with the host
// contract. Most hooks decline; the post-edit hook toggles a config field
// and the import route writes a config item.
package sample

import (
	"context"

	"sampleplugin/pkg/pluginapi"
)

const (
	// PluginName identifies the plugin in a host pool.
	PluginName = "sampleplugin"
	// PostEditHandle is the event the post-edit hook reacts to.
	PostEditHandle = "sampleplugin_post_edit"
	// ImportHandle is the protected POST route served by the plugin.
	ImportHandle = "sampleplugin_import"

	configCollection = "config"
	xmlField         = "xml"
	adminRole        = "admin"
	notImplemented   = "not implemented"
)

var _ pluginapi.Plugin = (*Plugin)(nil)

// Plugin is the sample adapter. It holds no mutable state, so one instance
// serves every hook invocation.
type Plugin struct {
	logger pluginapi.Logger
}

// Option customises a Plugin.
type Option func(*Plugin)

// WithLogger routes plugin logs to logger.
func WithLogger(logger pluginapi.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a sample plugin instance.
func New(opts ...Option) *Plugin {
	p := &Plugin{logger: pluginapi.NoopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register is the plugin entry point: it constructs the adapter and adds
// it to pool.
func Register(pool pluginapi.Pool) error {
	return pool.Register(New())
}

// RegisterWith returns an entry point that builds the plugin with opts.
func RegisterWith(opts ...Option) pluginapi.RegisterFunc {
	return func(pool pluginapi.Pool) error {
		return pool.Register(New(opts...))
	}
}

// Name returns the plugin identifier.
func (*Plugin) Name() string { return PluginName }

// Version returns the plugin semantic version.
func (*Plugin) Version() string { return "0.1.0" }

func (*Plugin) PingTest() {}

// ItemPreEditHook never approves edits.
func (*Plugin) ItemPreEditHook(context.Context, pluginapi.API, string, *pluginapi.Item, string, *pluginapi.Item, *pluginapi.Item, bool, bool) pluginapi.ProcessResult {
	return pluginapi.ProcessResult{Succeeded: false, Error: notImplemented}
}

// ItemPostEditHook flips the xml field of a deleted config item between
// "new" and "old".
func (p *Plugin) ItemPostEditHook(ctx context.Context, api pluginapi.API, hndl string, collection string, id uint64, del bool) {
	if hndl != PostEditHandle || collection != configCollection || !del {
		return
	}

	item, ok, err := api.GetItem(ctx, collection, id)
	if err != nil {
		p.logger.Error("fetch item", "collection", collection, "id", id, "error", err)
		return
	}
	if !ok {
		p.logger.Info("no item", "collection", collection, "id", id)
		return
	}

	item = item.Clone()
	item.SetStr(xmlField, toggleXML(item.SafeStr(xmlField, "")))

	if err := api.SetItem(ctx, collection, item, false); err != nil {
		p.logger.Error("store item", "collection", collection, "id", id, "error", err)
	}
}

func toggleXML(current string) string {
	if current == "" || current == "old" {
		return "new"
	}
	return "old"
}

// ItemAuthHook allows every access.
func (*Plugin) ItemAuthHook(context.Context, pluginapi.API, string, *pluginapi.Item, string, uint64, *pluginapi.Item, bool) bool {
	return true
}

// ItemListFilterHook returns items untouched.
func (*Plugin) ItemListFilterHook(_ context.Context, _ pluginapi.API, _ string, _ *pluginapi.Item, _, _ string, items map[uint64]pluginapi.Item) map[uint64]pluginapi.Item {
	return items
}

func (*Plugin) RouteURLHook(context.Context, pluginapi.API, string, *pluginapi.Item, string) pluginapi.WebResponse {
	return pluginapi.WebResponseNotImplemented
}

// RouteURLPostHook serves the import route: admins may post an item whose
// xml field is stored into the config collection under the id given in
// the query string.
func (p *Plugin) RouteURLPostHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, query string, posted pluginapi.Item) pluginapi.WebResponse {
	if hndl != ImportHandle {
		return pluginapi.WebResponseNotImplemented
	}

	if !api.CheckRole(ctx, user, adminRole) {
		return pluginapi.WebResponseUnauthorized
	}

	params, err := ParseImportQuery(query)
	if err != nil {
		p.logger.Warn("reject import", "query", query, "error", err)
		return pluginapi.WebResponseBadRequest
	}

	item := pluginapi.NewItem()
	item.ID = params.ID
	item.SetStr(xmlField, posted.SafeStr(xmlField, ""))

	if err := api.SetItem(ctx, configCollection, item, false); err != nil {
		p.logger.Error("store imported item", "id", params.ID, "error", err)
		return pluginapi.WebResponseInternalError
	}
	return pluginapi.WebResponseOK
}

func (*Plugin) RouteUnprotectedURLHook(context.Context, pluginapi.API, string, *pluginapi.Item, string) pluginapi.WebResponse {
	return pluginapi.WebResponseNotImplemented
}

func (*Plugin) RouteUnprotectedURLPostHook(context.Context, pluginapi.API, string, *pluginapi.Item, string, pluginapi.Item) pluginapi.WebResponse {
	return pluginapi.WebResponseNotImplemented
}

// CollectionReadHook never intercepts reads.
func (*Plugin) CollectionReadHook(context.Context, pluginapi.API, string, string, *pluginapi.Item) bool {
	return false
}

func (*Plugin) CallOTPHook(context.Context, pluginapi.API, string, pluginapi.Item) {}

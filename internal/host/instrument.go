package host

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sampleplugin/pkg/pluginapi"
)

// Hook names used for metrics, spans and log entries.
const (
	HookPreEdit              = "item_pre_edit"
	HookPostEdit             = "item_post_edit"
	HookAuth                 = "item_auth"
	HookListFilter           = "item_list_filter"
	HookRoute                = "route_url"
	HookRoutePost            = "route_url_post"
	HookRouteUnprotected     = "route_unprotected_url"
	HookRouteUnprotectedPost = "route_unprotected_url_post"
	HookCollectionRead       = "collection_read"
	HookOTP                  = "call_otp"
)

// HookError describes a negative hook outcome reported to spans.
type HookError struct {
	Hook   string
	Handle string
	Reason string
}

func (e HookError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Hook, e.Handle, e.Reason)
}

// Option configures an Instrumented plugin.
type Option func(*Instrumented)

// WithLogger sets the logger used for per-call debug entries.
func WithLogger(logger pluginapi.Logger) Option {
	return func(i *Instrumented) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetricsRecorder sets the recorder receiving hook observations.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(i *Instrumented) {
		if rec != nil {
			i.metrics = rec
		}
	}
}

// WithTracer sets the tracer wrapping each hook call.
func WithTracer(tracer Tracer) Option {
	return func(i *Instrumented) {
		if tracer != nil {
			i.tracer = tracer
		}
	}
}

// WithClock overrides the time source used for durations.
func WithClock(clock Clock) Option {
	return func(i *Instrumented) {
		if clock != nil {
			i.clock = clock
		}
	}
}

var _ pluginapi.Plugin = (*Instrumented)(nil)

// Instrumented wraps a plugin and records a span, a metric observation and
// a debug log entry for every hook invocation. Hook results pass through
// unchanged.
type Instrumented struct {
	plugin  pluginapi.Plugin
	logger  pluginapi.Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// Instrument wraps plugin with the supplied options.
func Instrument(plugin pluginapi.Plugin, opts ...Option) *Instrumented {
	i := &Instrumented{
		plugin:  plugin,
		logger:  pluginapi.NoopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Unwrap returns the wrapped plugin.
func (i *Instrumented) Unwrap() pluginapi.Plugin { return i.plugin }

func (i *Instrumented) run(ctx context.Context, hook, hndl string, fn func(context.Context) (string, error)) {
	start := i.clock.Now()
	callID := uuid.NewString()
	spanCtx, span := i.tracer.Start(ctx, SpanInfo{Hook: hook, Handle: hndl, CallID: callID})
	outcome, err := fn(spanCtx)
	span.End(outcome, err)
	duration := i.clock.Now().Sub(start)
	i.metrics.Observe(spanCtx, hook, err == nil, duration)
	if err != nil {
		i.logger.Debug("hook rejected", "plugin", i.plugin.Name(), "hook", hook, "handle", hndl, "call_id", callID, "outcome", outcome, "duration", duration)
		return
	}
	i.logger.Debug("hook completed", "plugin", i.plugin.Name(), "hook", hook, "handle", hndl, "call_id", callID, "outcome", outcome, "duration", duration)
}

func webOutcome(hook, hndl string, resp pluginapi.WebResponse) (string, error) {
	switch resp {
	case pluginapi.WebResponseBadRequest, pluginapi.WebResponseUnauthorized, pluginapi.WebResponseInternalError:
		return resp.String(), HookError{Hook: hook, Handle: hndl, Reason: resp.String()}
	default:
		return resp.String(), nil
	}
}

func (i *Instrumented) Name() string    { return i.plugin.Name() }
func (i *Instrumented) Version() string { return i.plugin.Version() }
func (i *Instrumented) PingTest()       { i.plugin.PingTest() }

func (i *Instrumented) ItemPreEditHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, collection string, oldItem *pluginapi.Item, item *pluginapi.Item, del, merge bool) pluginapi.ProcessResult {
	var res pluginapi.ProcessResult
	i.run(ctx, HookPreEdit, hndl, func(ctx context.Context) (string, error) {
		res = i.plugin.ItemPreEditHook(ctx, api, hndl, user, collection, oldItem, item, del, merge)
		if !res.Succeeded {
			return "declined", HookError{Hook: HookPreEdit, Handle: hndl, Reason: res.Error}
		}
		return "approved", nil
	})
	return res
}

func (i *Instrumented) ItemPostEditHook(ctx context.Context, api pluginapi.API, hndl string, collection string, id uint64, del bool) {
	i.run(ctx, HookPostEdit, hndl, func(ctx context.Context) (string, error) {
		i.plugin.ItemPostEditHook(ctx, api, hndl, collection, id, del)
		return "done", nil
	})
}

func (i *Instrumented) ItemAuthHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, collection string, id uint64, newItem *pluginapi.Item, del bool) bool {
	var allowed bool
	i.run(ctx, HookAuth, hndl, func(ctx context.Context) (string, error) {
		allowed = i.plugin.ItemAuthHook(ctx, api, hndl, user, collection, id, newItem, del)
		if !allowed {
			return "denied", HookError{Hook: HookAuth, Handle: hndl, Reason: "denied"}
		}
		return "allowed", nil
	})
	return allowed
}

func (i *Instrumented) ItemListFilterHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, collection, listContext string, items map[uint64]pluginapi.Item) map[uint64]pluginapi.Item {
	var out map[uint64]pluginapi.Item
	i.run(ctx, HookListFilter, hndl, func(ctx context.Context) (string, error) {
		out = i.plugin.ItemListFilterHook(ctx, api, hndl, user, collection, listContext, items)
		return fmt.Sprintf("%d/%d", len(out), len(items)), nil
	})
	return out
}

func (i *Instrumented) RouteURLHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, query string) pluginapi.WebResponse {
	var resp pluginapi.WebResponse
	i.run(ctx, HookRoute, hndl, func(ctx context.Context) (string, error) {
		resp = i.plugin.RouteURLHook(ctx, api, hndl, user, query)
		return webOutcome(HookRoute, hndl, resp)
	})
	return resp
}

func (i *Instrumented) RouteURLPostHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, query string, posted pluginapi.Item) pluginapi.WebResponse {
	var resp pluginapi.WebResponse
	i.run(ctx, HookRoutePost, hndl, func(ctx context.Context) (string, error) {
		resp = i.plugin.RouteURLPostHook(ctx, api, hndl, user, query, posted)
		return webOutcome(HookRoutePost, hndl, resp)
	})
	return resp
}

func (i *Instrumented) RouteUnprotectedURLHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, query string) pluginapi.WebResponse {
	var resp pluginapi.WebResponse
	i.run(ctx, HookRouteUnprotected, hndl, func(ctx context.Context) (string, error) {
		resp = i.plugin.RouteUnprotectedURLHook(ctx, api, hndl, user, query)
		return webOutcome(HookRouteUnprotected, hndl, resp)
	})
	return resp
}

func (i *Instrumented) RouteUnprotectedURLPostHook(ctx context.Context, api pluginapi.API, hndl string, user *pluginapi.Item, query string, posted pluginapi.Item) pluginapi.WebResponse {
	var resp pluginapi.WebResponse
	i.run(ctx, HookRouteUnprotectedPost, hndl, func(ctx context.Context) (string, error) {
		resp = i.plugin.RouteUnprotectedURLPostHook(ctx, api, hndl, user, query, posted)
		return webOutcome(HookRouteUnprotectedPost, hndl, resp)
	})
	return resp
}

func (i *Instrumented) CollectionReadHook(ctx context.Context, api pluginapi.API, hndl string, collection string, item *pluginapi.Item) bool {
	var handled bool
	i.run(ctx, HookCollectionRead, hndl, func(ctx context.Context) (string, error) {
		handled = i.plugin.CollectionReadHook(ctx, api, hndl, collection, item)
		if handled {
			return "handled", nil
		}
		return "passed", nil
	})
	return handled
}

func (i *Instrumented) CallOTPHook(ctx context.Context, api pluginapi.API, hndl string, item pluginapi.Item) {
	i.run(ctx, HookOTP, hndl, func(ctx context.Context) (string, error) {
		i.plugin.CallOTPHook(ctx, api, hndl, item)
		return "done", nil
	})
}

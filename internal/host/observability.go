package host

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives one observation per hook invocation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// SpanInfo identifies the hook invocation a span covers.
type SpanInfo struct {
	Hook   string
	Handle string
	CallID string
}

// Tracer starts a span around a hook invocation.
type Tracer interface {
	Start(ctx context.Context, info SpanInfo) (context.Context, TraceSpan)
}

// TraceSpan is closed with the outcome label and the negative-outcome
// error, if any.
type TraceSpan interface {
	End(outcome string, err error)
}

// Clock supplies timestamps for duration measurement.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ SpanInfo) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(string, error) {}

var expvarSeq uint64

// HookStats aggregates the observations of one hook.
type HookStats struct {
	Calls   int64   `json:"calls"`
	Errors  int64   `json:"errors"`
	TotalMS float64 `json:"total_ms"`
}

// MeanMS is the average call duration in milliseconds.
func (h HookStats) MeanMS() float64 {
	if h.Calls == 0 {
		return 0
	}
	return h.TotalMS / float64(h.Calls)
}

// ExpvarMetricsRecorder keeps per-hook call, error and latency totals and
// publishes them as an expvar map under Name().
type ExpvarMetricsRecorder struct {
	name  string
	mu    sync.Mutex
	hooks map[string]HookStats
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated sampleplugin_hook_metrics_<n> name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("sampleplugin_hook_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name, hooks: make(map[string]HookStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current totals keyed by hook name.
func (r *ExpvarMetricsRecorder) Snapshot() map[string]HookStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]HookStats, len(r.hooks))
	for hook, st := range r.hooks {
		out[hook] = st
	}
	return out
}

// Observe records a hook outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.hooks[operation]
	st.Calls++
	if !success {
		st.Errors++
	}
	st.TotalMS += float64(duration) / float64(time.Millisecond)
	r.hooks[operation] = st
}

// WriteJSON writes the published expvar value, one JSON object keyed by hook.
func (r *ExpvarMetricsRecorder) WriteJSON(w io.Writer) error {
	v := expvar.Get(r.name)
	if v == nil {
		return fmt.Errorf("expvar %s not published", r.name)
	}
	_, err := fmt.Fprintln(w, v.String())
	return err
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// PrometheusRecorder exports hook counters and latency histograms.
type PrometheusRecorder struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	rec := &PrometheusRecorder{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sampleplugin",
			Name:      "hook_calls_total",
			Help:      "Plugin hook invocations by hook and outcome.",
		}, []string{"hook", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sampleplugin",
			Name:      "hook_duration_seconds",
			Help:      "Plugin hook latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"hook"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{rec.calls, rec.duration} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register collector: %w", err)
			}
		}
	}
	return rec, nil
}

// Observe records a hook outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.calls.WithLabelValues(operation, statusLabel(success)).Inc()
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// MultiRecorder fans observations out to several recorders.
type MultiRecorder []MetricsRecorder

// Observe forwards to every recorder.
func (m MultiRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, rec := range m {
		if rec != nil {
			rec.Observe(ctx, operation, success, duration)
		}
	}
}

// SpanRecord is one finished hook span.
type SpanRecord struct {
	CallID     string    `json:"call_id"`
	Hook       string    `json:"hook"`
	Handle     string    `json:"handle,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTraceTracer writes one JSON line per finished span and keeps the
// records for inspection.
type JSONTraceTracer struct {
	clock   Clock
	mu      sync.Mutex
	records []SpanRecord
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains spans;
// a nil clock uses wall time.
func NewJSONTracer(w io.Writer, clock Clock) *JSONTraceTracer {
	t := &JSONTraceTracer{clock: clock}
	if t.clock == nil {
		t.clock = systemClock{}
	}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Records returns a copy of the finished spans in completion order.
func (t *JSONTraceTracer) Records() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.records...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, info SpanInfo) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, info: info, started: t.clock.Now().UTC()}
}

type jsonSpan struct {
	tracer  *JSONTraceTracer
	info    SpanInfo
	started time.Time
}

func (s *jsonSpan) End(outcome string, err error) {
	rec := SpanRecord{
		CallID:     s.info.CallID,
		Hook:       s.info.Hook,
		Handle:     s.info.Handle,
		Outcome:    outcome,
		Status:     statusLabel(err == nil),
		StartedAt:  s.started,
		DurationMS: float64(s.tracer.clock.Now().UTC().Sub(s.started)) / float64(time.Millisecond),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	t := s.tracer
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
	if t.enc != nil {
		_ = t.enc.Encode(rec)
	}
}

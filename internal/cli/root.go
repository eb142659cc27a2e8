// Package cli builds the sampleplugin command tree. Each command opens a
// session (item store, plugin pool, recorders), drives one plugin hook or
// store operation and closes the session again.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"sampleplugin/internal/blob"
	"sampleplugin/internal/config"
	"sampleplugin/internal/host"
	"sampleplugin/internal/itemstore"
	"sampleplugin/pkg/pluginapi"
	"sampleplugin/plugins/sample"
)

func version() string {
	return "v0.1.0"
}

type app struct {
	logLevel   string
	metrics    bool
	trace      bool
	loadConfig func() (config.Config, error)
}

// NewRootCmd builds the top-level `sampleplugin` command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.Load)
}

func newRootCmd(loadConfig func() (config.Config, error)) *cobra.Command {
	a := &app{loadConfig: loadConfig}
	root := &cobra.Command{
		Use:           "sampleplugin",
		Short:         "Host harness for the sample plugin",
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides SAMPLEPLUGIN_LOG_LEVEL")
	root.PersistentFlags().BoolVar(&a.metrics, "metrics", false, "write Prometheus and expvar hook metrics to stderr on exit")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "write one JSON span per hook call to stderr")
	root.AddCommand(a.newImportCmd())
	root.AddCommand(a.newPostEditCmd())
	root.AddCommand(a.newGetCmd())
	root.AddCommand(a.newSnapshotCmd())
	root.AddCommand(a.newPluginsCmd())
	return root
}

// session is the per-command host runtime.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	backend  itemstore.Backend
	api      *itemstore.API
	pool     *host.Pool
	registry *prometheus.Registry
	expvar   *host.ExpvarMetricsRecorder
	metrics  bool
	errOut   io.Writer
}

func (a *app) open(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		if cfg.LogLevel, err = config.ParseLevel(a.logLevel); err != nil {
			return nil, err
		}
	}
	s := &session{
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})),
		registry: prometheus.NewRegistry(),
		metrics:  a.metrics,
		errOut:   cmd.ErrOrStderr(),
	}

	prom, err := host.NewPrometheusRecorder(s.registry)
	if err != nil {
		return nil, err
	}
	s.expvar = host.NewExpvarMetricsRecorder("")
	instrument := []host.Option{
		host.WithLogger(s.logger),
		host.WithMetricsRecorder(host.MultiRecorder{s.expvar, prom}),
	}
	if a.trace {
		instrument = append(instrument, host.WithTracer(host.NewJSONTracer(cmd.ErrOrStderr(), nil)))
	}

	loaded := host.NewPool()
	if err := loaded.Load(sample.RegisterWith(sample.WithLogger(s.logger))); err != nil {
		return nil, fmt.Errorf("load plugins: %w", err)
	}
	s.pool = host.NewPool()
	for _, p := range loaded.Plugins() {
		wrapped := host.Instrument(p, instrument...)
		if err := s.pool.Register(wrapped); err != nil {
			return nil, err
		}
	}

	s.backend, err = itemstore.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open item store: %w", err)
	}
	s.api = itemstore.NewAPI(s.backend)
	s.logger.Debug("session opened", "storage", s.backend.Driver(), "plugins", len(s.pool.Plugins()))
	return s, nil
}

// close releases the store and, when requested, dumps the Prometheus
// exposition followed by the expvar totals.
func (s *session) close() error {
	err := s.backend.Close()
	if s.metrics {
		err = errors.Join(err, writeMetrics(s.errOut, s.registry), s.expvar.WriteJSON(s.errOut))
	}
	return err
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}

func (s *session) plugin() (pluginapi.Plugin, error) {
	return s.pool.Get(sample.PluginName)
}

func (s *session) blobs(ctx context.Context) (blob.Store, error) {
	store, err := blob.Open(ctx, s.cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return store, nil
}

// withSession opens a session around fn and closes it afterwards.
func (a *app) withSession(fn func(*cobra.Command, *session, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := a.open(cmd)
		if err != nil {
			return err
		}
		return errors.Join(fn(cmd, s, args), s.close())
	}
}

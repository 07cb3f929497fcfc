package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnehpets/rpcserve/config"
)

// Metrics contains all metric groups and the registry they live in.
type Metrics struct {
	HTTP *HTTPMetrics
	RPC  *RPCMetrics

	registry *prometheus.Registry
}

// New creates a registry with every metric group plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		HTTP:     NewHTTPMetrics(),
		RPC:      NewRPCMetrics(),
		registry: prometheus.NewRegistry(),
	}
	m.HTTP.Register(m.registry)
	m.RPC.Register(m.registry)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Registry returns the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// MetricsServer represents the Prometheus metrics HTTP server
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
	cfg    *config.MetricsConfig
}

// NewServer creates a new metrics server
func NewServer(cfg *config.MetricsConfig, m *Metrics, logger *slog.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		},
		logger: logger.With("component", "metrics"),
		cfg:    cfg,
	}
}

// Start runs the metrics server until it is shut down. It returns nil
// immediately when metrics are disabled.
func (s *MetricsServer) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("metrics server disabled")
		return nil
	}

	s.logger.Info("starting metrics server",
		slog.String("addr", s.server.Addr),
		slog.String("path", s.cfg.Path))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the metrics server
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.server.Shutdown(ctx)
}

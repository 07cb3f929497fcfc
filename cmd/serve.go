package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mnehpets/rpcserve/config"
	"github.com/mnehpets/rpcserve/endpoint"
	"github.com/mnehpets/rpcserve/errorreport"
	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/log"
	"github.com/mnehpets/rpcserve/metrics"
	"github.com/mnehpets/rpcserve/middleware"
	"github.com/mnehpets/rpcserve/server"
	"github.com/mnehpets/rpcserve/system"
	"github.com/mnehpets/rpcserve/wsjsonrpc"
)

func serveCmd(registrars []Registrar) *cobra.Command {
	var (
		port string
		path string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC server",
		Long: `
Run the JSON-RPC 2.0 server.

The server accepts single and batch calls as HTTP POST on the RPC path and
as WebSocket messages on the WS path, and exposes the built-in system.*
methods. Prometheus metrics are served on a separate port when
METRICS_ENABLED is set, and internal errors are reported to Sentry when
SENTRY_DSN is set.

Configure listen port, path, logging, body size and batch concurrency via
environment variables or a .env file; flags override the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				if err := cfg.SetListenPort(port); err != nil {
					return err
				}
			}
			if path != "" {
				if err := cfg.SetRPCPath(path); err != nil {
					return err
				}
			}

			logger := log.NewLogger(cfg.GetLogLevel(), cfg.GetLogFormat())
			m := metrics.New()

			reporting, err := errorreport.Init(cfg.GetSentryConfig())
			if err != nil {
				return err
			}
			if reporting {
				logger.Info("sentry error reporting enabled", slog.String("environment", cfg.GetSentryConfig().Environment))
				defer errorreport.Flush()
			}

			handler, err := NewHandler(cfg, logger, m, registrars...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger, server.New(cfg, logger, handler), metrics.NewServer(cfg.GetMetricsConfig(), m, logger))
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&path, "path", "", "JSON-RPC endpoint path (overrides RPC_PATH)")

	return cmd
}

// run serves until ctx is cancelled or a server fails, then shuts both
// servers down within the configured timeout.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, srv *server.Server, metricsSrv *metrics.MetricsServer) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(metricsSrv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.GetShutdownTimeout()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// NewHandler builds the application mux: the JSON-RPC endpoint with its
// processor chain on the configured path, the WebSocket endpoint when
// enabled, and a health check.
func NewHandler(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, registrars ...Registrar) (http.Handler, error) {
	reg := jsonrpc.NewRegistry("")
	if err := system.Register(reg); err != nil {
		return nil, err
	}
	for _, register := range registrars {
		if err := register(reg); err != nil {
			return nil, err
		}
	}
	logger.Debug("registered methods", slog.Any("methods", reg.Names()))

	observer := jsonrpc.Observer(m.RPC)
	if cfg.GetSentryConfig().DSN != "" {
		observer = jsonrpc.Observers(m.RPC, errorreport.NewObserver(nil))
	}

	d := jsonrpc.NewDispatcher(reg,
		jsonrpc.WithLogger(logger),
		jsonrpc.WithObserver(observer),
		jsonrpc.WithBatchConcurrency(cfg.GetBatchConcurrency()),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.GetRPCPath(), d.Handler(
		middleware.NewRequestLogger(logger),
		&middleware.AccessLog{Logger: logger},
		&middleware.Instrument{Metrics: m.HTTP, Handler: cfg.GetRPCPath()},
		&middleware.BodyLimit{MaxBytes: cfg.GetMaxBodyBytes()},
	))
	if wsPath := cfg.GetWSPath(); wsPath != "" {
		mux.Handle("GET "+wsPath, wsjsonrpc.New(d, logger, cfg.GetMaxBodyBytes()))
	}
	mux.Handle("GET /health", endpoint.Handler(health))

	return mux, nil
}

func health(_ http.ResponseWriter, _ *http.Request, _ struct{}) (endpoint.Renderer, error) {
	return &endpoint.JSONRenderer{Value: map[string]string{"status": "ok"}}, nil
}

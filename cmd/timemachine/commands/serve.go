package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timemachine/pkg/api"
	"github.com/Sumatoshi-tech/timemachine/pkg/config"
	"github.com/Sumatoshi-tech/timemachine/pkg/observability"
	"github.com/Sumatoshi-tech/timemachine/pkg/version"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the history tools over HTTP",
		Long: `Start an HTTP server exposing the history tools:

  POST /tools/get_git_blame          {"file"}
  POST /tools/get_commit_diff        {"sha"}
  POST /tools/summarize_diff         {"base", "head"}
  POST /tools/get_commits_affecting  {"file", "limit"}
  POST /tools/get_file_at_commit     {"file", "sha"}

plus /metadata, /.well-known/ai-plugin.json, /openapi.json, /healthz,
/readyz and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			extra := make(map[string]any)

			if cmd.Flags().Changed("host") {
				extra["server.host"] = host
			}

			if cmd.Flags().Changed("port") {
				extra["server.port"] = port
			}

			cfg, err := flags.load(extra)
			if err != nil {
				return err
			}

			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultServerHost, "address to bind")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "port to listen on")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	providers, err := initObservability(cfg, observability.ModeServe)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	engine, err := newEngine(cfg, providers)
	if err != nil {
		return err
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	srv, err := api.New(engine, api.Options{
		Logger:         providers.Logger,
		Tracer:         providers.Tracer,
		Metrics:        red,
		MetricsHandler: providers.MetricsHandler,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Version:        version.Version,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr(), err)
	}

	providers.Logger.Info("server starting",
		"addr", listener.Addr().String(),
		"repository", cfg.Repository.Path,
		"backend", cfg.Repository.Backend,
	)

	return serve(ctx, listener, cfg.Server, srv.Handler(), providers.Logger)
}

// serve runs handler on listener until ctx is canceled, then drains
// in-flight requests within the shutdown timeout.
func serve(ctx context.Context, listener net.Listener, cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down", "timeout", cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return errors.Join(fmt.Errorf("shutdown: %w", err), server.Close())
	}

	err = <-serveErr
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

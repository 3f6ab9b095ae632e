package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/config"
	"github.com/sagarc03/gridfetch/database"
	gridhttp "github.com/sagarc03/gridfetch/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the gridfetch HTTP server.

Every configured route answers GET <prefix><key>. Backends are connected
on startup when reachable and reconnected lazily when they are not.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port (env: GRIDFETCH_SERVER_PORT)")
	serveCmd.Flags().Int("max-in-flight", 0, "concurrent lookups per backend (env: GRIDFETCH_SERVICE_MAX_IN_FLIGHT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := gridfetch.NewPool(database.Dialer(cfg.Database), gridfetch.PoolConfig{
		DefaultBackend: cfg.Database.DSN,
		MaxInFlight:    cfg.Service.MaxInFlight,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := pool.Close(closeCtx); err != nil {
			slog.Warn("close backends", "err", err)
		}
	}()

	warmUp(ctx, pool, cfg.Backends())

	service, err := gridfetch.NewService(pool, gridfetch.ServiceConfig{
		LookupTimeout: cfg.Service.LookupTimeout,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	handlerConfig := gridhttp.HandlerConfig{
		Routes:            cfg.Locations(),
		CORS:              cfg.CORS,
		ChunkReadTimeout:  cfg.Server.ChunkReadTimeout,
		ChunkWriteTimeout: cfg.Server.ChunkWriteTimeout,
		MetricsPath:       metricsPath,
	}

	handler := gridhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	// No WriteTimeout: object bodies are bounded per chunk instead.
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		for _, root := range cfg.Locations() {
			for _, loc := range root.Flatten() {
				slog.Info("serving route", "prefix", loc.Prefix, "namespace", loc.Namespace().String(), "field", loc.Field, "type", loc.Type.String())
			}
		}
		slog.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// warmUp connects every backend once so configuration errors show up in the
// startup log. Failures are not fatal; requests retry the connection.
func warmUp(ctx context.Context, pool *gridfetch.Pool, backends []string) {
	for _, backend := range backends {
		if _, err := pool.Conn(backend).EnsureConnected(ctx); err != nil {
			slog.Warn("backend not reachable", "err", err)
			continue
		}
		slog.Info("connected to backend", "type", database.DetectType(backend))
	}
}

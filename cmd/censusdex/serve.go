package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/aaronbrezel/mcp-census/internal/transport/chi"
	mcpTransport "github.com/aaronbrezel/mcp-census/internal/transport/mcp"
	"github.com/aaronbrezel/mcp-census/internal/version"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API (and MCP over streamable HTTP)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides http.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	logger := a.logger

	mounts := map[string]http.Handler{}
	if cfg.MCP.HTTPPath != "" {
		mcpServer, err := a.mcpServer()
		if err != nil {
			return err
		}
		mounts[cfg.MCP.HTTPPath] = mcpServer.Handler()
		logger.Info("MCP streamable HTTP enabled", zap.String("path", cfg.MCP.HTTPPath))
	}

	server := chiTransport.NewServer(a.datasets, a.variables, a.geography, a.health, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys: cfg.Auth.APIKeys,
		Mounts:  mounts,
	}, logger)

	if len(cfg.Auth.APIKeys) == 0 {
		logger.Warn("Auth disabled: no API keys configured")
	}

	port := cfg.HTTP.Port
	if servePort > 0 {
		port = servePort
	}
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	a.warm(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// mcpServer builds the MCP server over the app's services.
func (a *app) mcpServer() (*mcpTransport.Server, error) {
	srv, err := mcpTransport.NewServer(&mcpTransport.Ports{
		Datasets:  a.datasets,
		Variables: a.variables,
		Geography: a.geography,
		Index:     a.datasets,
	}, a.cfg.MCP.Name, version.Version, a.logger)
	if err != nil {
		return nil, fmt.Errorf("create mcp server: %w", err)
	}
	return srv, nil
}

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/handlers"
	"github.com/DhruvParmar051/book-recommendation-system/internal/recommend"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recommendation API",
		Long: `Starts the HTTP API on the specified port.

Endpoints:
  POST /recommend    {"query": "...", "top_k": 5}
  GET  /books        ?skip=&limit=&search_field=title|authors|publisher&query=
  GET  /healthcheck
  GET  /metrics

The record store is served immediately. The recommender loads in the
background; /recommend answers 503 until it is ready.`,
		Example: `  # Start server on default port 8888
  bookrec serve

  # Start server on custom port
  bookrec serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Serve.Port = port
			}

			store, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			service := recommend.NewService()
			go func() {
				r, svc, err := buildRecommender(cmd.Context(), cfg, store)
				if err != nil {
					slog.Warn("Recommender disabled", "err", err)
					return
				}
				context.AfterFunc(cmd.Context(), func() { _ = svc.Close() })
				service.Set(r)
			}()

			handler := handlers.New(service, store)

			addr := ":" + cfg.Serve.Port
			server := &http.Server{
				Addr: addr,
				Handler: handler.Routes(handlers.RouteConfig{
					CORSOrigins:        cfg.Serve.CORSOrigins,
					RecommendPerMinute: cfg.Serve.RecommendPerMinute,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Book recommendation API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}

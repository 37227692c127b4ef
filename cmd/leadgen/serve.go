package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"leadgen-agent/handler"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(run sessionRunner) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, _ []string, s *session) error {
			opts := []handler.Option{
				handler.WithLogger(s.logger),
				handler.WithMetrics(s.app.Metrics.Handler()),
			}
			if s.rekeyer != nil {
				opts = append(opts, handler.WithRekeyer(s.rekeyer))
			}
			if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
				opts = append(opts, handler.WithAllowedOrigins(strings.Split(origins, ",")...))
			}
			router, err := handler.NewRouter(s.app.Dashboard, opts...)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return serve(cmd.Context(), srv)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("LEADGEN_ADDR", ":8080"), "listen address")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

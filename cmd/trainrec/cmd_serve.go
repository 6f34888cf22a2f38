package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recommendation HTTP server",
		Long: `Start the recommendation HTTP server.

Routes:
  GET  /api/recommendations/{userID}   personalized recommendations
  POST /api/recommendations            recommendations from a JSON request
  POST /api/recommendations/feedback   record a training outcome
  POST /api/recommendations/preferences
  POST /api/recommendations/refresh    refresh user models
  GET  /api/recommendations/trending
  GET  /api/recommendations/stats
  GET  /health
  GET  /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, g *globals) error {
	a, err := buildApp(ctx, g.cfg, g.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			g.logger.Warn().Err(err).Msg("close components")
		}
	}()

	sc := g.cfg.Server
	srv := &http.Server{
		Addr:         sc.Addr,
		Handler:      a.server().Router(),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info().Str("addr", sc.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		g.logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sc.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	g.logger.Info().Msg("server stopped gracefully")
	return nil
}

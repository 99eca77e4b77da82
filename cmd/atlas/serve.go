package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/solarfluxx/atlas/pkg/atom"
	"github.com/solarfluxx/atlas/pkg/live"
	"github.com/solarfluxx/atlas/pkg/middleware"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		tracing bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo live server",
		Long: `Start a live server hosting the built-in counter demo.

Each WebSocket connection to /live gets its own root atom; client
"set" frames write through it, and the rendered state streams back.
Prometheus metrics are exposed on /metrics.

Examples:
  atlas serve
  atlas serve --addr=:8080 --tracing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, tracing)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3000", "Address to listen on")
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Enable OpenTelemetry request spans")

	return cmd
}

func runServe(addr string, tracing bool) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mws := []func(http.Handler) http.Handler{middleware.Prometheus()}
	if tracing {
		mws = append(mws, middleware.OpenTelemetry())
	}

	srv := live.NewServer(newCounterRoot, counterView,
		live.WithLogger(logger),
		live.WithMiddleware(mws...),
	)

	r := chi.NewRouter()
	r.Mount("/", srv.Handler())
	r.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	srv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newCounterRoot builds the per-session demo state.
func newCounterRoot() *atom.Atom {
	root := atom.New(map[string]any{
		"count": 0,
		"label": "clicks",
	})
	root.Set("increment", atom.Method(func(args ...any) any {
		n, _ := root.Peek("count").(int)
		root.Set("count", n+1)
		return nil
	}))
	return root
}

// counterView renders the demo state. Reading through Get makes every
// field a re-render trigger.
func counterView(root *atom.Atom) any {
	return map[string]any{
		"count": root.Get("count"),
		"label": root.Get("label"),
	}
}

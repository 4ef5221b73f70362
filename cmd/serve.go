package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumline/internal/metrics"
	"forumline/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background workers and expose metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		interval, err := time.ParseDuration(cfg.Watch.Interval)
		if err != nil {
			return fmt.Errorf("invalid watch.interval: %w", err)
		}
		addr := cfg.Metrics.Addr
		if cmd.Flags().Changed("metrics-addr") {
			addr = metricsAddr
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		if s.forum.Actor() == "" {
			return errors.New("serve needs user.id (or --as) to know which subforums to watch")
		}

		if addr != "" {
			r := chi.NewRouter()
			r.Use(middleware.Recoverer)
			r.Handle("/metrics", metrics.Handler())
			r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				slog.Info("serving metrics", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server error", "error", err)
				}
			}()
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = srv.Shutdown(sctx)
			}()
		}

		mgr := worker.NewManager(&worker.ThreadWatcher{
			Forum:    s.forum,
			Interval: interval,
		})

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigc
			log.Printf("received signal: %s, shutting down", sig)
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (default from metrics.addr)")
}

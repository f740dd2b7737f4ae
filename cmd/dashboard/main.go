package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nebulacloud/console/internal/dashboard/query"
	"github.com/nebulacloud/console/internal/dashboard/server"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
	"github.com/nebulacloud/console/pkg/config"
	"github.com/nebulacloud/console/pkg/logger"
)

func main() {
	cfg := config.LoadDashboardConfig()
	log := logger.New("dashboard", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := apiclient.New(cfg.APIBaseURL, apiclient.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	if err != nil {
		log.Error("invalid api base url", "error", err)
		os.Exit(1)
	}

	opts := []query.Option{
		query.WithMetrics(query.NewMetrics(prometheus.DefaultRegisterer)),
		query.WithCallTimeout(cfg.RequestTimeout),
	}
	if addr := strings.TrimSpace(cfg.QueryRedisAddr); addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		broadcaster, err := query.NewRedisBroadcaster(pingCtx, addr, cfg.QueryRedisPass, cfg.QueryRedisDB, cfg.QueryChannel, log)
		cancel()
		if err != nil {
			log.Warn("redis invalidation broadcaster unavailable", "error", err)
		} else {
			defer broadcaster.Close()
			opts = append(opts, query.WithBroadcaster(broadcaster))
			log.Info("query invalidations shared over redis", "channel", cfg.QueryChannel)
		}
	}
	cache := query.NewClient(log, opts...)
	go func() {
		if err := cache.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("query invalidation listener stopped", "error", err)
		}
	}()

	handler, err := server.New(cfg, api, cache, log)
	if err != nil {
		log.Error("failed to configure dashboard", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("dashboard starting", "addr", cfg.Addr, "api", api.BaseURL(), "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("dashboard stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

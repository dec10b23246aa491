package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventgate/eventgate/internal/cache"
	"github.com/eventgate/eventgate/internal/config"
	"github.com/eventgate/eventgate/internal/db"
	httpx "github.com/eventgate/eventgate/internal/http"
	"github.com/eventgate/eventgate/internal/notifications"
	"github.com/eventgate/eventgate/internal/observability"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	if cfg.Env != "dev" && cfg.UsingDevSecret() {
		log.Error("JWT_SECRET must be set outside dev")
		os.Exit(1)
	}

	// tracing is opt-in via OTEL_EXPORTER_OTLP_ENDPOINT
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "eventgate", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// optional bootstrap admin from env, no-op when unset
	{
		ctx, cancel := config.WithTimeout(5 * time.Second)
		err := db.EnsureAdminUser(ctx, pool, cfg)
		cancel()

		if err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}
	}

	// cache backend: redis when configured, in-process otherwise
	var store cache.Store
	if cfg.RedisAddr != "" {
		rds := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})

		ctx, cancel := config.WithTimeout(2 * time.Second)
		err := rds.Ping(ctx)
		cancel()

		if err != nil {
			log.Error("redis connect failed", "err", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}

		defer rds.Close()
		store = rds
		log.Info("cache backend", "kind", "redis", "addr", cfg.RedisAddr)
	} else {
		store = cache.New(cfg.CacheTTL)
		log.Info("cache backend", "kind", "memory")
	}

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{},
	)

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, pool, store, notifier, prom)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

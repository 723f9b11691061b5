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

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"postcheck/internal/platform/config"
	"postcheck/internal/platform/httpserver"
	"postcheck/internal/platform/logger"
	"postcheck/internal/platform/metrics"
	"postcheck/internal/postal"
	postalhandler "postcheck/internal/postal/handler"
	"postcheck/internal/prefix"
	prefixmetrics "postcheck/internal/prefix/metrics"
	prefixservice "postcheck/internal/prefix/service"
	httptransport "postcheck/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "postcheck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open prefix store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("closing prefix store", "error", err)
		}
	}()

	registerer := prometheus.DefaultRegisterer
	appMetrics := metrics.New(registerer)

	registry := prefix.NewService(st,
		prefixservice.WithLogger(log),
		prefixservice.WithMetrics(prefixmetrics.New(registerer)),
	)
	seeded, err := registry.Bootstrap(ctx, cfg.Registry.Seed)
	if err != nil {
		return fmt.Errorf("seed prefix registry: %w", err)
	}
	log.Info("prefix registry ready", "backend", cfg.Storage.Backend, "seeded", seeded)

	classifier := postal.New(registry,
		postal.WithLogger(log),
		postal.WithMetrics(appMetrics),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        appMetrics,
		Gatherer:       prometheus.DefaultGatherer,
		Health:         registry,
		RequestTimeout: cfg.Server.RequestTimeout,
		Handlers: []httptransport.Registrar{
			postalhandler.New(classifier, log),
			prefix.NewHandler(registry, log),
		},
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting postcheck", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

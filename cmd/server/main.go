package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vllry/bus-traffic-archive/pkg/aggregate"
	"github.com/vllry/bus-traffic-archive/pkg/config"
	"github.com/vllry/bus-traffic-archive/pkg/ingest"
	"github.com/vllry/bus-traffic-archive/pkg/metrics"
	"github.com/vllry/bus-traffic-archive/pkg/objstore"
	"github.com/vllry/bus-traffic-archive/pkg/refdata"
	"github.com/vllry/bus-traffic-archive/pkg/registry"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalw("failed to initialize object store", "error", err)
	}

	client := refdata.NewClient(
		cfg.RefServer.URL,
		time.Duration(cfg.RefServer.TimeoutSeconds)*time.Second,
		log,
	)

	reg, err := buildRegistry(ctx, cfg, client, log)
	if err != nil {
		log.Fatalw("failed to build city registry", "error", err)
	}
	log.Infow("city registry ready", "cities", reg.Len())

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	orchestrator := ingest.NewOrchestrator(client, store, reg, cfg.Ingest.Workers, log, m)
	engine := aggregate.NewEngine(store, log, m)

	srv := newServer(cfg.Server.Port, orchestrator, engine, store, promRegistry, log)

	go func() {
		log.Infow("server starting", "addr", srv.httpServer.Addr)
		if err := srv.start(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.shutdown(shutdownCtx); err != nil {
		log.Fatalw("forced shutdown", "error", err)
	}
	log.Info("shutdown complete")
}

func newStore(ctx context.Context, cfg config.StorageConfig) (objstore.Store, error) {
	if cfg.Backend == config.BackendGCS {
		return objstore.NewGCSStore(ctx, cfg.Bucket, cfg.Prefix)
	}
	return objstore.NewLocalStore(cfg.LocalPath)
}

// buildRegistry uses the configured city list, falling back to the reference
// server's /cities endpoint when none is configured. Fetching once per
// process start keeps ingestion order stable across calls.
func buildRegistry(ctx context.Context, cfg *config.Config, client *refdata.Client, log *zap.SugaredLogger) (*registry.Registry, error) {
	if len(cfg.Cities) > 0 {
		return registry.New(cfg.Cities), nil
	}

	log.Info("no cities configured, fetching registry from reference server")
	cities, err := client.FetchCities(ctx)
	if err != nil {
		return nil, err
	}
	return registry.New(cities), nil
}

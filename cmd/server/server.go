package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vllry/bus-traffic-archive/pkg/aggregate"
	"github.com/vllry/bus-traffic-archive/pkg/ingest"
	"github.com/vllry/bus-traffic-archive/pkg/objstore"
)

type server struct {
	httpServer   *http.Server
	orchestrator *ingest.Orchestrator
	engine       *aggregate.Engine
	store        objstore.Store
	log          *zap.SugaredLogger
}

func newServer(port string, orchestrator *ingest.Orchestrator, engine *aggregate.Engine, store objstore.Store, promRegistry *prometheus.Registry, log *zap.SugaredLogger) *server {
	s := &server{
		orchestrator: orchestrator,
		engine:       engine,
		store:        store,
		log:          log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/country-stats", s.handleCountryStats)
	mux.HandleFunc("/ingested-dates", s.handleIngestedDates)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: s.loggingMiddleware(mux),
		// Ingesting or aggregating a large range takes a while; these bound
		// the request, not the work behind it.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *server) start() error {
	return s.httpServer.ListenAndServe()
}

func (s *server) shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Infow("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

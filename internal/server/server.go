// Package server implements the HTTP API of the cafe chatbot: the chat
// query endpoint, the knowledge-base (embedding) endpoints, read-only cafe
// data, health/readiness checks and Prometheus metrics.
// The server is started by the `cafebot serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/cafebot-go/internal/logging"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Rate-limited routes; these are also the keys of Config.RouteLimits.
const (
	RouteChatQuery      = "POST /api/chat/query"
	RouteEmbeddingQuery = "POST /api/embedding/query"
)

// New constructs a Server from the chat service, cafe data and config.
func New(chat chatService, data cafeData, cfg *Config) (*Server, error) {
	if chat == nil {
		return nil, fmt.Errorf("server: chat service must not be nil")
	}
	if data == nil {
		return nil, fmt.Errorf("server: cafe data must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(cfg.MetricsRegistry)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		chat:    chat,
		cafe:    data,
		cfg:     cfg,
		log:     log,
		pingers: append([]Pinger{cafeDataPinger{data}}, cfg.Pingers...),
		metrics: cfg.Metrics,
		quotas: newQuotas(
			RateLimit{RPS: cfg.RateLimit, Burst: cfg.RateBurst},
			cfg.RouteLimits,
			cfg.TrustProxy,
		),
	}
	s.quotas.onReject = func(route string) { s.metrics.rateLimitedTotal.WithLabelValues(route).Inc() }

	if cfg.APIKey == "" {
		log.Warn("server: CAFEBOT_API_KEY is not set, knowledge-base routes are unauthenticated")
	}

	mux := http.NewServeMux()
	for _, rt := range []struct {
		pattern string
		h       http.HandlerFunc
	}{
		{RouteChatQuery, s.handleQuery},
		{RouteEmbeddingQuery, s.handleRetrieve},
	} {
		mux.Handle(rt.pattern, s.quotas.limit(rt.pattern, rt.h))
	}
	mux.Handle("POST /api/embedding/add", s.requireAPIKey(s.handleAdd))
	mux.Handle("GET /api/embedding/{collectionName}/all", s.requireAPIKey(s.handleAll))
	mux.HandleFunc("GET /api/cafe/info", s.handleCafeInfo)
	mux.HandleFunc("GET /api/cafe/menu", s.handleCafeMenu)
	mux.HandleFunc("GET /api/cafe/menu/available", s.handleCafeAvailableMenu)
	mux.HandleFunc("GET /api/cafe/business-hours", s.handleCafeBusinessHours)
	mux.HandleFunc("GET /api/cafe/facilities", s.handleCafeFacilities)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.metrics.instrument(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.stopQuotas = s.quotas.run()
	defer s.stopQuotas()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// decodeJSON reads a size-capped JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("server: encode response", slog.Any("error", err))
	}
}

// writeError writes an errorResponse.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

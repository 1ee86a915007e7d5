package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/cafebot-go/internal/cafe"
	"github.com/54b3r/cafebot-go/internal/chatbot"
	"github.com/54b3r/cafebot-go/internal/qa"
	"github.com/54b3r/cafebot-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 3000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers are the dependency checks run by GET /api/ready, after the
	// built-in cafe-data check.
	Pingers []Pinger
	// RateLimit is the per-client requests/second on query routes without
	// an entry in RouteLimits. Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the per-client burst paired with RateLimit. Defaults to 20.
	RateBurst int
	// RouteLimits overrides RateLimit and RateBurst per mux pattern, e.g.
	// "POST /api/chat/query". Zero fields inherit the defaults.
	RouteLimits map[string]RateLimit
	// TrustProxy keys rate limits on the first X-Forwarded-For hop instead
	// of the peer address.
	TrustProxy bool
	// APIKey guards the knowledge-base routes, sent as a Bearer token or in
	// X-API-Key. If empty, authentication is disabled (development mode).
	APIKey string
	// Collection, VectorBackend and Embedder are reported by GET /api/health.
	Collection    string
	VectorBackend string
	Embedder      string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
	// Metrics, if set, is used instead of registering a new set against
	// MetricsRegistry. Share it with the chatbot service as its Observer.
	Metrics *Metrics
}

// chatService is what the chat and embedding handlers call.
// *chatbot.Service satisfies it; tests inject a fake.
type chatService interface {
	Ask(ctx context.Context, query string) chatbot.Reply
	Retrieve(ctx context.Context, collection, query string, limit int) ([]qa.Answer, error)
	Ingest(ctx context.Context, collection string, f qa.Fact) error
	Documents(ctx context.Context, collection string) ([]rag.Record, error)
}

// cafeData is the read side of the cafe data service.
type cafeData interface {
	Info() cafe.Info
	Menu() cafe.Menu
	AvailableMenu() cafe.Menu
	BusinessHours() cafe.BusinessHours
	Facilities() cafe.Facilities
}

// Server is the HTTP front end of the chatbot.
type Server struct {
	chat       chatService
	cafe       cafeData
	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	pingers    []Pinger
	metrics    *Metrics
	quotas     *quotas
	// stopQuotas stops the idle-bucket sweeper on shutdown.
	stopQuotas func()
}

// queryRequest is the JSON body for POST /api/chat/query.
type queryRequest struct {
	Query string `json:"query"`
}

// addRequest is the JSON body for POST /api/embedding/add.
type addRequest struct {
	CollectionName string         `json:"collectionName"`
	Document       string         `json:"document"`
	Questions      []string       `json:"questions"`
	AnswerType     string         `json:"answerType,omitempty"`
	FunctionPath   string         `json:"functionPath,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// retrieveRequest is the JSON body for POST /api/embedding/query.
type retrieveRequest struct {
	CollectionName string `json:"collectionName"`
	Query          string `json:"query"`
	Limit          int    `json:"limit,omitempty"`
}

// documentResponse is one element of GET /api/embedding/{collectionName}/all.
type documentResponse struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
}

// messageResponse acknowledges a write.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// dataResponse wraps cafe data reads.
type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorResponse is the body of every 4xx/5xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/version"
)

// checkTimeout bounds each dependency check run by GET /api/ready.
const checkTimeout = 5 * time.Second

// Pinger is a dependency that can report its own reachability.
// Implementations must be safe to call from multiple goroutines.
type Pinger interface {
	// Ping returns nil when the dependency is usable.
	Ping(ctx context.Context) error
	// Name labels the dependency in readiness responses, e.g. "sqlite".
	Name() string
}

// healthResponse is the body of GET /api/health.
type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Collection    string `json:"collection,omitempty"`
	VectorBackend string `json:"vectorBackend,omitempty"`
	Embedder      string `json:"embedder,omitempty"`
}

// readyCheck is one dependency result in GET /api/ready.
type readyCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// readyResponse is the body of GET /api/ready.
type readyResponse struct {
	Ready  bool         `json:"ready"`
	Checks []readyCheck `json:"checks"`
}

// handleHealth handles GET /api/health. It never touches a dependency.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       version.Version,
		Collection:    s.cfg.Collection,
		VectorBackend: s.cfg.VectorBackend,
		Embedder:      s.cfg.Embedder,
	})
}

// cafeDataPinger reports the cafe snapshot as unusable until it names the
// cafe; every cafe-data answer is rendered from it.
type cafeDataPinger struct{ data cafeData }

func (cafeDataPinger) Name() string { return "cafe-data" }

func (p cafeDataPinger) Ping(context.Context) error {
	if p.data.Info().Name == "" {
		return errCafeDataEmpty
	}
	return nil
}

// handleReady handles GET /api/ready. Every check runs concurrently under
// its own timeout; the response lists them in registration order and is 503
// if any failed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	checks := make([]readyCheck, len(s.pingers))
	var g errgroup.Group
	for i, p := range s.pingers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()

			start := time.Now()
			err := p.Ping(ctx)
			checks[i] = readyCheck{
				Name:      p.Name(),
				OK:        err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				checks[i].Error = err.Error()
				log.Warn("readiness check failed",
					slog.String("dependency", p.Name()),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := readyResponse{Ready: true, Checks: checks}
	for _, c := range checks {
		resp.Ready = resp.Ready && c.OK
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}

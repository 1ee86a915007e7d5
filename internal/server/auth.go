package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/cafebot-go/internal/logging"
)

// apiKeyHeader carries the admin key for clients that cannot set
// Authorization, such as the seed scripts run from cron.
const apiKeyHeader = "X-API-Key"

// Reasons recorded on cafebot_auth_rejected_total.
const (
	authMissing = "missing"
	authInvalid = "invalid"
)

// requireAPIKey guards the knowledge-base routes. With no key configured it
// returns next unchanged. Otherwise the request must present the key as
// "Authorization: Bearer <key>" or in X-API-Key, and anything else gets a
// JSON 401 with a Bearer challenge. The presented value is never logged.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.Handler {
	if s.cfg.APIKey == "" {
		return next
	}
	want := []byte(s.cfg.APIKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, source := presentedKey(r)
		if got == "" {
			s.rejectAuth(w, r, authMissing, source, `Bearer realm="cafebot"`, "api key required")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			s.rejectAuth(w, r, authInvalid, source, `Bearer realm="cafebot", error="invalid_token"`, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rejectAuth(w http.ResponseWriter, r *http.Request, reason, source, challenge, msg string) {
	s.metrics.authRejectedTotal.WithLabelValues(reason).Inc()
	logging.FromContext(r.Context()).Warn("auth: rejected",
		slog.String("reason", reason),
		slog.String("source", source),
		slog.String("path", r.URL.Path),
	)
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, r, http.StatusUnauthorized, msg)
}

// presentedKey returns the key the client sent and where it came from. A
// Bearer token wins over X-API-Key; source is "none" when neither is set.
func presentedKey(r *http.Request) (key, source string) {
	if tok := bearerToken(r.Header.Get("Authorization")); tok != "" {
		return tok, "bearer"
	}
	if k := strings.TrimSpace(r.Header.Get(apiKeyHeader)); k != "" {
		return k, "header"
	}
	return "", "none"
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// value, or "" when the scheme is not Bearer.
func bearerToken(hdr string) string {
	scheme, tok, ok := strings.Cut(hdr, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

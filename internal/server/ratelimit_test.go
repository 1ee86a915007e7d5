package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fixedQuotas returns quotas whose clock only moves when the test says so.
func fixedQuotas(fallback RateLimit, perRoute map[string]RateLimit, trustProxy bool) (*quotas, *time.Time) {
	q := newQuotas(fallback, perRoute, trustProxy)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, &now
}

// TestRateLimit_ChatQueryOverBurst verifies that the chat route rejects the
// request after the burst with a JSON 429, a Retry-After header and a
// per-route metric.
func TestRateLimit_ChatQueryOverBurst(t *testing.T) {
	t.Parallel()

	s, reg := newTestServerWith(&fakeChat{}, &Config{RateLimit: 0.001, RateBurst: 2})

	for i := range 2 {
		if w := do(t, s, http.MethodPost, "/api/chat/query", `{"query":"영업시간"}`); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := do(t, s, http.MethodPost, "/api/chat/query", `{"query":"영업시간"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
	var body errorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Error == "" {
		t.Errorf("expected JSON error body, got %q (%v)", w.Body.String(), err)
	}

	m := findMetric(t, reg, "cafebot_rate_limited_total", map[string]string{"route": RouteChatQuery})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("cafebot_rate_limited_total{route=%q} = %v, want 1", RouteChatQuery, m)
	}
}

// TestRateLimit_RoutesHaveSeparateBudgets verifies that exhausting the chat
// route leaves the embedding query route untouched.
func TestRateLimit_RoutesHaveSeparateBudgets(t *testing.T) {
	t.Parallel()

	s, _ := newTestServerWith(&fakeChat{}, &Config{
		RouteLimits: map[string]RateLimit{RouteChatQuery: {RPS: 0.001, Burst: 1}},
	})

	do(t, s, http.MethodPost, "/api/chat/query", `{"query":"메뉴"}`)
	if w := do(t, s, http.MethodPost, "/api/chat/query", `{"query":"메뉴"}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("chat: expected 429, got %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/api/embedding/query", `{"collectionName":"faq","query":"메뉴"}`); w.Code != http.StatusOK {
		t.Errorf("embedding query: expected 200, got %d", w.Code)
	}
}

// TestRateLimit_CafeDataIsNotLimited verifies that the cafe data
// routes are served regardless of the query budget.
func TestRateLimit_CafeDataIsNotLimited(t *testing.T) {
	t.Parallel()

	s, _ := newTestServerWith(&fakeChat{}, &Config{RateLimit: 0.001, RateBurst: 1})
	for i := range 5 {
		if w := do(t, s, http.MethodGet, "/api/cafe/menu", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestQuotas_RouteLimitInheritsZeroFields(t *testing.T) {
	t.Parallel()

	q := newQuotas(RateLimit{RPS: 10, Burst: 20}, map[string]RateLimit{
		RouteChatQuery:      {RPS: 2},
		RouteEmbeddingQuery: {Burst: 3},
	}, false)

	if got := q.limits[RouteChatQuery]; got != (RateLimit{RPS: 2, Burst: 20}) {
		t.Errorf("chat limit = %+v", got)
	}
	if got := q.limits[RouteEmbeddingQuery]; got != (RateLimit{RPS: 10, Burst: 3}) {
		t.Errorf("embedding limit = %+v", got)
	}
}

// TestQuotas_RetryAfterRoundsUp verifies the wait is reported in whole
// seconds, rounded up.
func TestQuotas_RetryAfterRoundsUp(t *testing.T) {
	t.Parallel()

	q, _ := fixedQuotas(RateLimit{RPS: 0.4, Burst: 1}, nil, false)
	h := q.limit(RouteChatQuery, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/chat/query", nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat/query", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Errorf("Retry-After = %q, want 3", got)
	}
}

// TestQuotas_RejectedRequestsDoNotConsumeTokens verifies that a rejected
// request leaves the bucket as it was, so the client recovers on schedule.
func TestQuotas_RejectedRequestsDoNotConsumeTokens(t *testing.T) {
	t.Parallel()

	q, now := fixedQuotas(RateLimit{RPS: 1, Burst: 1}, nil, false)

	if d := q.reserve(RouteChatQuery, "10.0.0.1"); d != 0 {
		t.Fatalf("first request waited %v", d)
	}
	for range 5 {
		if d := q.reserve(RouteChatQuery, "10.0.0.1"); d != time.Second {
			t.Fatalf("rejected request wait = %v, want 1s", d)
		}
	}
	*now = now.Add(time.Second)
	if d := q.reserve(RouteChatQuery, "10.0.0.1"); d != 0 {
		t.Errorf("after one second: waited %v, want 0", d)
	}
}

// TestQuotas_PerClientIsolation verifies that clients have independent
// buckets on the same route.
func TestQuotas_PerClientIsolation(t *testing.T) {
	t.Parallel()

	q, _ := fixedQuotas(RateLimit{RPS: 0.001, Burst: 1}, nil, false)
	q.reserve(RouteChatQuery, "192.168.1.1")

	if d := q.reserve(RouteChatQuery, "192.168.1.1"); d == 0 {
		t.Error("client A: expected to wait")
	}
	if d := q.reserve(RouteChatQuery, "192.168.1.2"); d != 0 {
		t.Errorf("client B: waited %v, should be independent of client A", d)
	}
}

func TestQuotas_SweepDropsIdleBuckets(t *testing.T) {
	t.Parallel()

	q, now := fixedQuotas(RateLimit{RPS: 1, Burst: 1}, nil, false)
	q.reserve(RouteChatQuery, "10.0.0.1")
	*now = now.Add(bucketIdle / 2)
	q.reserve(RouteEmbeddingQuery, "10.0.0.2")

	*now = now.Add(bucketIdle/2 + time.Second)
	q.sweep()

	if len(q.buckets) != 1 {
		t.Fatalf("buckets after sweep = %d, want 1", len(q.buckets))
	}
	if _, ok := q.buckets[bucketKey{route: RouteEmbeddingQuery, client: "10.0.0.2"}]; !ok {
		t.Error("recently used bucket was dropped")
	}
}

func TestQuotas_ClientKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"ipv4", "127.0.0.1:54321", "", false, "127.0.0.1"},
		{"ipv6", "[::1]:8080", "", false, "::1"},
		{"no port", "noport", "", false, "noport"},
		{"xff ignored", "10.0.0.1:80", "203.0.113.7", false, "10.0.0.1"},
		{"xff first hop", "10.0.0.1:80", "203.0.113.7, 10.0.0.9", true, "203.0.113.7"},
		{"xff blank", "10.0.0.1:80", " ", true, "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			q := newQuotas(RateLimit{RPS: 1, Burst: 1}, nil, tc.trustProxy)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := q.clientKey(req); got != tc.want {
				t.Errorf("clientKey() = %q, want %q", got, tc.want)
			}
		})
	}
}

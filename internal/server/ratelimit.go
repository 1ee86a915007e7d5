package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/cafebot-go/internal/logging"
)

const (
	// defaultRateLimit is the per-client requests/second on query routes
	// with no configured limit.
	defaultRateLimit = 10
	// defaultRateBurst is the per-client burst on query routes with no
	// configured burst.
	defaultRateBurst = 20
	// bucketIdle is how long a client bucket survives without traffic.
	bucketIdle = 5 * time.Minute
)

// RateLimit is a token-bucket setting applied per client on one route.
type RateLimit struct {
	// RPS is the sustained requests per second.
	RPS float64
	// Burst is the largest instantaneous burst.
	Burst int
}

type bucketKey struct {
	route  string
	client string
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// quotas holds one token bucket per (route, client) pair. Each route has
// its own RateLimit, so a burst of chat queries does not eat into the
// budget for knowledge-base lookups.
type quotas struct {
	mu         sync.Mutex
	buckets    map[bucketKey]*bucket
	limits     map[string]RateLimit
	fallback   RateLimit
	trustProxy bool
	now        func() time.Time
	// onReject is called with the route of every rejected request.
	onReject func(route string)
}

func newQuotas(fallback RateLimit, perRoute map[string]RateLimit, trustProxy bool) *quotas {
	limits := make(map[string]RateLimit, len(perRoute))
	for route, l := range perRoute {
		if l.RPS <= 0 {
			l.RPS = fallback.RPS
		}
		if l.Burst <= 0 {
			l.Burst = fallback.Burst
		}
		limits[route] = l
	}
	return &quotas{
		buckets:    make(map[bucketKey]*bucket),
		limits:     limits,
		fallback:   fallback,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

// reserve takes one token for client on route. It returns 0 when the
// request may proceed, or how long the client should wait.
func (q *quotas) reserve(route, client string) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	key := bucketKey{route: route, client: client}
	b, ok := q.buckets[key]
	if !ok {
		l, ok := q.limits[route]
		if !ok {
			l = q.fallback
		}
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.RPS), l.Burst)}
		q.buckets[key] = b
	}
	b.seen = now

	res := b.lim.ReserveN(now, 1)
	if !res.OK() {
		return time.Second
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return d
	}
	return 0
}

// sweep drops buckets idle since before now-bucketIdle.
func (q *quotas) sweep() {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-bucketIdle)
	for k, b := range q.buckets {
		if b.seen.Before(cutoff) {
			delete(q.buckets, k)
		}
	}
}

// run sweeps once a minute until the returned stop function is called.
func (q *quotas) run() (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				q.sweep()
			}
		}
	}()
	return func() { close(done) }
}

// limit wraps next with the bucket for route. Rejected requests get a JSON
// 429 with Retry-After rounded up to whole seconds.
func (q *quotas) limit(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := q.clientKey(r)
		wait := q.reserve(route, client)
		if wait == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if q.onReject != nil {
			q.onReject(route)
		}
		retry := max(1, int(math.Ceil(wait.Seconds())))
		logging.FromContext(r.Context()).Warn("rate limit exceeded",
			slog.String("route", route),
			slog.String("client", client),
			slog.Int("retry_after", retry),
		)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, r, http.StatusTooManyRequests, "too many requests")
	})
}

// clientKey identifies the caller. X-Forwarded-For is honoured only when
// the server sits behind a trusted proxy, and then only its first hop.
func (q *quotas) clientKey(r *http.Request) string {
	if q.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	bucketTTL     = 10 * time.Minute
	pruneInterval = 5 * time.Minute
)

// requestClass splits traffic by cost. Model-backed endpoints spend real
// model quota per request, so they draw from a much smaller bucket than
// plain CRUD traffic.
type requestClass int

const (
	classGeneral requestClass = iota
	classModel
)

func (c requestClass) String() string {
	if c == classModel {
		return "model"
	}
	return "general"
}

// classify puts chat turns and agent runs in the model class.
func classify(r *http.Request) requestClass {
	if r.Method != http.MethodPost {
		return classGeneral
	}
	p := r.URL.Path
	switch {
	case p == "/api/v1/chat", p == "/api/v1/chat/stream":
		return classModel
	case strings.HasPrefix(p, "/api/v1/agents/") && strings.HasSuffix(p, "/run"):
		return classModel
	}
	return classGeneral
}

// limitPolicy is the token bucket shape for one request class.
type limitPolicy struct {
	refill rate.Limit
	burst  int
}

// rateLimiter keeps one token bucket per caller and class. Stale buckets
// are pruned inline during allow calls.
type rateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	policies map[requestClass]limitPolicy
	nextScan time.Time
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter derives both class policies from the configured general
// burst: general traffic refills one token a second, model traffic refills
// a fifth of that with a sixth of the burst.
func newRateLimiter(generalBurst int) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*bucket),
		policies: map[requestClass]limitPolicy{
			classGeneral: {refill: 1, burst: generalBurst},
			classModel:   {refill: 0.2, burst: max(generalBurst/6, 2)},
		},
		nextScan: time.Now().Add(pruneInterval),
	}
}

// allow draws a token from the caller's bucket for the given class.
func (rl *rateLimiter) allow(caller string, class requestClass) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.pruneLocked(now)

	key := class.String() + "|" + caller
	b := rl.buckets[key]
	if b == nil {
		p := rl.policies[class]
		b = &bucket{tokens: rate.NewLimiter(p.refill, p.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.tokens.Allow()
}

func (rl *rateLimiter) pruneLocked(now time.Time) {
	if now.Before(rl.nextScan) {
		return
	}
	for k, b := range rl.buckets {
		if now.Sub(b.lastSeen) > bucketTTL {
			delete(rl.buckets, k)
		}
	}
	rl.nextScan = now.Add(pruneInterval)
}

// rateLimitMiddleware classifies each request and enforces the matching
// per-caller bucket.
func rateLimitMiddleware(rl *rateLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := classify(r)
			caller := callerKey(r, trustProxy)
			if !rl.allow(caller, class) {
				logger.Warn("rate limit exceeded",
					"caller", caller,
					"class", class.String(),
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the requester for rate limiting. Proxy headers are
// honored only when trustProxy is set, and only when they parse as an IP,
// so a forged header cannot mint fresh buckets.
func callerKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, header := range []string{"X-Real-IP", "X-Forwarded-For"} {
			v := r.Header.Get(header)
			if v == "" {
				continue
			}
			// X-Forwarded-For lists the client first.
			first, _, _ := strings.Cut(v, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

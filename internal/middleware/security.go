package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/rpd-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost.
// allowedHost should be the bare hostname without scheme or port; empty
// disables the check.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPLimiter keeps one token bucket per client IP. Buckets idle for longer
// than ttl are evicted by Cleanup.
type IPLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

func NewIPLimiter(limit rate.Limit, burst int, ttl time.Duration) *IPLimiter {
	return &IPLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = l.now()
	return e.limiter.Allow()
}

// Cleanup drops buckets that have not been used within ttl.
func (l *IPLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, e := range l.entries {
		if now.Sub(e.lastUse) > l.ttl {
			delete(l.entries, ip)
		}
	}
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (l *IPLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

const (
	globalRateLimitRPS   = 1
	globalRateLimitBurst = 10
	loginRateLimitEvery  = 5 * time.Second
	loginRateLimitBurst  = 2
	limiterCleanupEvery  = 5 * time.Minute
	limiterTTL           = 30 * time.Minute
)

// LoginPath is the sign-in route the stricter limit applies to.
const LoginPath = "/auth/signin"

func tooManyRequests(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"message":"` + message + `"}`))
}

// GlobalRateLimit rejects requests from an IP whose bucket is empty with 429.
func GlobalRateLimit(l *IPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientip.RealClientIP(r)) {
				tooManyRequests(w, "Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit applies l to the sign-in route only. Use after GlobalRateLimit.
func LoginRateLimit(l *IPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != LoginPath {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(clientip.RealClientIP(r)) {
				tooManyRequests(w, "Too many login attempts. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProductionSecurity returns the production chain: SecurityHeaders →
// HostCheck → GlobalRateLimit → LoginRateLimit. The limiters' cleanup
// loops stop when ctx is done.
func ProductionSecurity(ctx context.Context, allowedHost string) []func(http.Handler) http.Handler {
	global := NewIPLimiter(rate.Limit(globalRateLimitRPS), globalRateLimitBurst, limiterTTL)
	login := NewIPLimiter(rate.Every(loginRateLimitEvery), loginRateLimitBurst, limiterTTL)
	go global.RunCleanup(ctx, limiterCleanupEvery)
	go login.RunCleanup(ctx, limiterCleanupEvery)

	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		GlobalRateLimit(global),
		LoginRateLimit(login),
	}
}

// Package ratelimit applies a per-client fixed window to the JSON API.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds rate limiter tunables. Zero values fall back to defaults.
type Config struct {
	PerMinute     int
	SweepInterval time.Duration
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		PerMinute:     60,
		SweepInterval: 5 * time.Minute,
	}
}

// window tracks one client's requests inside the current minute.
type window struct {
	startedAt time.Time
	count     int
}

// Limiter counts requests per client IP over a rolling one-minute window.
// Stale windows are swept periodically so the map stays bounded by the
// number of recently active clients.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	rejected atomic.Int64

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
}

// NewLimiter starts a limiter and its background sweep goroutine. Call Stop
// when the server shuts down.
func NewLimiter(cfg Config) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultConfig().PerMinute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}

	l := &Limiter{
		windows:       make(map[string]*window),
		limit:         cfg.PerMinute,
		sweepInterval: cfg.SweepInterval,
		stopSweep:     make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

// Allow reports whether one more request from clientIP fits in its window.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[clientIP]
	if !ok || now.Sub(w.startedAt) > time.Minute {
		l.windows[clientIP] = &window{startedAt: now, count: 1}
		return true
	}

	w.count++
	if w.count > l.limit {
		l.rejected.Add(1)
		return false
	}
	return true
}

// Rejected returns the number of requests refused since startup.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// ActiveClients returns the number of client windows currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopSweep)
	})
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopSweep:
			return
		}
	}
}

// sweep drops windows whose minute has long passed.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, w := range l.windows {
		if w.startedAt.Before(cutoff) {
			delete(l.windows, ip)
		}
	}
}

// Middleware wraps a handler with the limiter. extractIP resolves the client
// address; onLimit writes the over-limit response, falling back to a JSON
// error body when nil.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = writeLimitExceeded
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(extractIP(r)) {
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeLimitExceeded(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Retry-After", "60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
}

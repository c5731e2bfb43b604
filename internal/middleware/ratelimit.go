package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter allows each client IP a fixed number of requests per window.
type RateLimiter struct {
	visitors sync.Map
	limit    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	mu      sync.Mutex
	start   time.Time
	count   int
	lastHit time.Time
	evicted bool
}

// NewRateLimiter creates a limiter. Call Cleanup in a goroutine to evict
// idle clients.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window, now: time.Now}
}

// Cleanup evicts clients idle for longer than the window until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	tk := time.NewTicker(time.Minute)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			rl.evictIdle(rl.now())
		}
	}
}

// evictIdle drops visitors idle since before now-window. A visitor is marked
// evicted under its lock so a concurrent Allow holding it retries against
// the map instead of counting into a detached entry.
func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.visitors.Range(func(key, value any) bool {
		v := value.(*visitor)
		v.mu.Lock()
		if now.Sub(v.lastHit) > rl.window {
			v.evicted = true
			rl.visitors.CompareAndDelete(key, v)
		}
		v.mu.Unlock()
		return true
	})
}

// Allow records a request from ip and reports whether it is within the limit.
// When it is not, it also returns how long until the window resets.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	now := rl.now()
	for {
		value, _ := rl.visitors.LoadOrStore(ip, &visitor{start: now})
		v := value.(*visitor)

		v.mu.Lock()
		if v.evicted {
			v.mu.Unlock()
			rl.visitors.CompareAndDelete(ip, v)
			continue
		}
		v.lastHit = now
		if now.Sub(v.start) >= rl.window {
			v.start = now
			v.count = 0
		}
		if v.count >= rl.limit {
			retry := v.start.Add(rl.window).Sub(now)
			v.mu.Unlock()
			return false, retry
		}
		v.count++
		v.mu.Unlock()
		return true, 0
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ok, retry := rl.Allow(ip); !ok {
			log.Printf("WARN: rate limit exceeded for %s on %s", ip, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already applied forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

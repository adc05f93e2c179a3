package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type rateWindow struct {
	count int
	until time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	per     time.Duration
}

// allow counts one request against the key's current window and reports
// whether it fits, together with the seconds until the window resets.
func (rl *rateLimiter) allow(key string, now time.Time) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	win, ok := rl.windows[key]
	if !ok || now.After(win.until) {
		win = &rateWindow{until: now.Add(rl.per)}
		rl.windows[key] = win
	}
	if win.count >= rl.limit {
		return false, int(win.until.Sub(now).Seconds()) + 1
	}
	win.count++

	// Drop expired windows occasionally so the map does not grow with every
	// IP ever seen.
	if len(rl.windows) > 4096 {
		for k, w := range rl.windows {
			if now.After(w.until) {
				delete(rl.windows, k)
			}
		}
	}
	return true, 0
}

// RateLimit applies a fixed-window per-IP request limit. Operations here are
// cheap to accept and expensive to run, so the window guards enqueue spam
// rather than bandwidth.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	rl := &rateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		per:     per,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := rl.allow(clientIPForRateLimit(r), time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIPForRateLimit is stricter than ClientIP: forwarded entries must parse
// as real addresses, otherwise one spoofed header would mint fresh buckets.
func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiterEntry holds a rate limiter and last-seen timestamp for cleanup.
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MutationLimiter throttles event mutations per client IP. Reads are never
// limited; only create/update/delete/move go through it.
type MutationLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	rate     rate.Limit
	burst    int
}

// NewMutationLimiter allows r mutations per second with the given burst.
// For "30 per minute" pass rate.Every(2*time.Second) with burst 30.
func NewMutationLimiter(r rate.Limit, burst int) *MutationLimiter {
	ml := &MutationLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		rate:     r,
		burst:    burst,
	}
	go ml.cleanup()
	return ml
}

// getLimiter returns the rate limiter for the given IP, creating one if needed.
func (ml *MutationLimiter) getLimiter(ip string) *rate.Limiter {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	entry, exists := ml.limiters[ip]
	if !exists {
		limiter := rate.NewLimiter(ml.rate, ml.burst)
		ml.limiters[ip] = &ipLimiterEntry{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanup evicts entries not seen in the last 10 minutes.
func (ml *MutationLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ml.mu.Lock()
		for ip, entry := range ml.limiters {
			if time.Since(entry.lastSeen) > 10*time.Minute {
				delete(ml.limiters, ip)
			}
		}
		ml.mu.Unlock()
	}
}

// Limit wraps a mutation handler with per-IP rate limiting. Returns 429
// Too Many Requests when the limit is exceeded.
func (ml *MutationLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ml.getLimiter(clientIP(r)).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next(w, r)
	}
}

// clientIP extracts the client IP, honoring reverse-proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

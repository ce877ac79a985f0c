// Package server provides the HTTP API for sanitizing documents.
package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/2hard2touch/smart-data-sanitizer/internal/requestctx"
)

// KeyHeader carries the API key; "Authorization: Bearer <key>" also works.
const KeyHeader = "X-Sanitizer-Key"

// AuthMiddleware checks the API key and stores a caller ID derived from it.
// With no keys configured every request passes as caller "anonymous".
func AuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(apiKeys) == 0 {
				next.ServeHTTP(w, r.WithContext(requestctx.SetCaller(r.Context(), "anonymous")))
				return
			}
			key := r.Header.Get(KeyHeader)
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			matched := 0
			for _, k := range apiKeys {
				matched |= subtle.ConstantTimeCompare([]byte(k), []byte(key))
			}
			if key == "" || matched != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.SetCaller(r.Context(), callerID(key))))
		})
	}
}

// callerID names a caller without exposing its key.
func callerID(key string) string {
	h := sha256.Sum256([]byte(key))
	return "key_" + hex.EncodeToString(h[:4])
}

// RateLimiter enforces a global and a per-caller token bucket.
type RateLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	callers   map[string]*rate.Limiter
	perCaller rate.Limit
	burst     int
	rpm       int
}

// NewRateLimiter allows rpm requests per minute per caller and four times
// that across all callers.
func NewRateLimiter(rpm int) *RateLimiter {
	burst := rpm
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(float64(4*rpm)/60.0), 4*burst),
		callers:   make(map[string]*rate.Limiter),
		perCaller: rate.Limit(float64(rpm) / 60.0),
		burst:     burst,
		rpm:       rpm,
	}
}

// Allow reports whether caller may make a request now.
func (rl *RateLimiter) Allow(caller string) bool {
	if !rl.global.Allow() {
		return false
	}
	rl.mu.Lock()
	limiter, ok := rl.callers[caller]
	if !ok {
		limiter = rate.NewLimiter(rl.perCaller, rl.burst)
		rl.callers[caller] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// RateLimitMiddleware answers 429 once the caller's budget is spent.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.Allow(requestctx.Caller(r.Context())) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.rpm))
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

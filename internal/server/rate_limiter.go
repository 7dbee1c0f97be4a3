package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
)

const (
	// Default rate limiting values
	defaultRate  = 10.0 // 10 requests per second
	defaultBurst = 20   // burst of 20 requests
)

// HTTPRateLimiter provides rate limiting for HTTP requests
type HTTPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	config   *RateLimiterConfig
}

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	DefaultRate  float64 // requests per second
	DefaultBurst int     // burst limit
	PerIP        bool    // whether to limit per IP address
	PerEndpoint  bool    // whether to limit per endpoint
}

// NewHTTPRateLimiter creates a new HTTP rate limiter
func NewHTTPRateLimiter(config *RateLimiterConfig) *HTTPRateLimiter {
	if config == nil {
		config = &RateLimiterConfig{
			DefaultRate:  defaultRate,
			DefaultBurst: defaultBurst,
			PerIP:        true,
			PerEndpoint:  true,
		}
	}

	return &HTTPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// getLimiterKey generates a key for the rate limiter based on configuration
func (rl *HTTPRateLimiter) getLimiterKey(r *http.Request) string {
	key := "global"
	if rl.config.PerEndpoint {
		key = r.URL.Path
	}

	if rl.config.PerIP {
		key += ":" + getClientIP(r)
	}

	return key
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check for X-Forwarded-For header (for proxy scenarios)
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	// Check for X-Real-IP header
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr without the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// getOrCreateLimiter gets or creates a rate limiter for the given key
func (rl *HTTPRateLimiter) getOrCreateLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rl.config.DefaultRate), rl.config.DefaultBurst)
	rl.limiters[key] = limiter
	return limiter
}

// Allow checks if the request is allowed based on rate limiting
func (rl *HTTPRateLimiter) Allow(r *http.Request) bool {
	return rl.getOrCreateLimiter(rl.getLimiterKey(r)).Allow()
}

// RateLimitMiddleware creates a middleware that applies rate limiting
func RateLimitMiddleware(limiter *HTTPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r) {
				w.Header().Set("Retry-After", "1")
				apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrCodeRateLimited, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiterConfig configures the per-client token bucket limiter.
type RateLimiterConfig struct {
	// RequestsPerSecond is the steady refill rate per client.
	RequestsPerSecond float64

	// BurstSize is how many requests a client may issue at once before
	// the refill rate applies.
	BurstSize int

	// CleanupInterval is how often idle client buckets are dropped.
	CleanupInterval time.Duration

	// KeyFunc extracts the limiting key from the request.
	// Defaults to the client IP.
	KeyFunc func(r *http.Request) string
}

// DefaultRateLimiterConfig returns limits sized for a storefront: a
// shopper paging through the bag and checkout stays well under them,
// and Stripe redelivers webhook events that hit a 429.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		CleanupInterval:   time.Minute,
		KeyFunc:           GetClientIP,
	}
}

// tokenBucket holds one client's remaining allowance.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiter is an in-memory, per-key token bucket limiter.
type RateLimiter struct {
	config  RateLimiterConfig
	buckets map[string]*tokenBucket
	mu      sync.RWMutex
	stop    chan struct{}
}

// NewRateLimiter creates a limiter and starts its cleanup loop.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = GetClientIP
	}

	rl := &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether a request under key may proceed, consuming one
// token if so.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		bucket = &tokenBucket{
			tokens:     float64(rl.config.BurstSize),
			lastRefill: time.Now(),
		}
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill).Seconds()
	bucket.tokens += elapsed * rl.config.RequestsPerSecond
	if bucket.tokens > float64(rl.config.BurstSize) {
		bucket.tokens = float64(rl.config.BurstSize)
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}

	return false
}

// cleanup drops buckets that refilled completely and sat unused for a
// full interval, so one-off clients do not accumulate forever.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, bucket := range rl.buckets {
				bucket.mu.Lock()
				if bucket.tokens >= float64(rl.config.BurstSize) &&
					now.Sub(bucket.lastRefill) > rl.config.CleanupInterval {
					delete(rl.buckets, key)
				}
				bucket.mu.Unlock()
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

// Middleware rejects over-limit requests with 429 and a Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)

		if !rl.Allow(key) {
			w.Header().Set("Retry-After", "1")
			respondTooManyRequests(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP, trusting X-Forwarded-For and
// X-Real-IP from the fronting proxy before falling back to RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First entry in the list is the originating client.
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

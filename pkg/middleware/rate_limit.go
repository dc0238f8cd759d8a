package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "propdash/pkg/errors"
	httputil "propdash/pkg/http"
	"propdash/pkg/logger"
)

// KeyFunc picks the bucket a request is charged to. An empty key is not limited.
type KeyFunc func(r *http.Request) string

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter is a token bucket per key: `requests` tokens refilled evenly over `window`.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	rate     rate.Limit
	burst    int
	window   time.Duration
	log      *logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewKeyedRateLimiter(requests int, window time.Duration, log *logger.Logger) *KeyedRateLimiter {
	rl := &KeyedRateLimiter{
		limiters: make(map[string]*keyedLimiter),
		rate:     rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		window:   window,
		log:      log,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *KeyedRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &keyedLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()
	return entry.limiter.Allow()
}

// RetryAfter is the whole number of seconds until one token is available again.
func (rl *KeyedRateLimiter) RetryAfter() int {
	return int(math.Ceil(rl.window.Seconds() / float64(rl.burst)))
}

func (rl *KeyedRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Reject writes the 429 response for a request charged to key.
func (rl *KeyedRateLimiter) Reject(w http.ResponseWriter, r *http.Request, key string) {
	rl.log.Warn("Rate limit exceeded",
		"request_id", RequestIDFromContext(r.Context()),
		"key", key,
		"path", r.URL.Path,
	)
	w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter()))
	_ = httputil.WriteError(w, apperrors.TooManyRequests("Rate limit exceeded"))
}

func (rl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, entry := range rl.limiters {
				if time.Since(entry.lastSeen) > rl.window {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func RateLimit(limiter *KeyedRateLimiter, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if !limiter.Allow(key) {
				limiter.Reject(w, r, key)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP keys on the connection's remote address. Proxy headers are ignored
// because they are caller-controlled.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket: limit requests per window with a
// burst of limit.
type RateLimiter struct {
	limit      int
	window     time.Duration
	trustProxy bool
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitorLimiter
}

func NewRateLimiter(limit int, window time.Duration, trustProxy bool, logger *zap.Logger, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		limit:      limit,
		window:     window,
		trustProxy: trustProxy,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		visitors:   make(map[string]*visitorLimiter),
	}
}

// Handler rejects requests over the limit with 429. A non-positive limit
// disables limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 || rl.window <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := ClientIP(r, rl.trustProxy)
		if !rl.allow(ip) {
			rl.logger.Warn("per-IP rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
			)
			rl.metrics.RecordRateLimitHit()
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			respondError(w, http.StatusTooManyRequests, CodeTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitorLimiter{
			limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit),
		}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// retryAfter is the time for one token to refill, in whole seconds.
func (rl *RateLimiter) retryAfter() int {
	secs := int((rl.window / time.Duration(rl.limit)).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// Sweep drops limiters idle for longer than one window. An idle limiter
// has refilled completely, so forgetting it changes nothing.
func (rl *RateLimiter) Sweep() int {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("cleaned up IP rate limiters", zap.Int("removed", removed))
	}
	return removed
}

// RunSweeper calls Sweep every window until stop is closed.
func (rl *RateLimiter) RunSweeper(stop <-chan struct{}) {
	if rl.window <= 0 {
		return
	}
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-stop:
			return
		}
	}
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"telemedia/internal/httputil"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-client request rate on inbound endpoints.
// Limiters are kept per client IP and pruned after a period of inactivity.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	logger   *logrus.Logger
	lastSeen time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows requestsPerMin sustained requests per client with a
// burst of the same size.
func NewRateLimiter(requestsPerMin int, logger *logrus.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMin)),
		burst:    requestsPerMin,
		logger:   logger,
		lastSeen: 10 * time.Minute,
		done:     make(chan struct{}),
	}
	go rl.prune()
	return rl
}

// Stop terminates the background prune goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.GetClientIP(r)
		if !rl.allow(ip) {
			rl.logger.WithFields(logrus.Fields{
				"component": "ratelimit",
				"remote_ip": ip,
			}).Warn("Request rate limit exceeded")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.seen = time.Now()
	return c.limiter.Allow()
}

func (rl *RateLimiter) prune() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, c := range rl.clients {
				if time.Since(c.seen) > rl.lastSeen {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

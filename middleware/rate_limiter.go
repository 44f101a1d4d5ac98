package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"threadscope/utils"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTimeout   = 10 * time.Minute
)

// limiterStore keeps one token bucket per client IP
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	every    rate.Limit
	burst    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (s *limiterStore) allow(ip string, now time.Time) bool {
	s.mu.Lock()
	cl, ok := s.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.every, s.burst)}
		s.limiters[ip] = cl
	}
	cl.lastSeen = now
	s.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

// sweep forgets clients idle for longer than limiterIdleTimeout
func (s *limiterStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ip, cl := range s.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTimeout {
			delete(s.limiters, ip)
		}
	}
}

// RateLimiter allows each client IP `requests` requests per `window`.
// A non-positive request count disables limiting.
func RateLimiter(requests int, window time.Duration) fiber.Handler {
	if requests <= 0 || window <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	store := &limiterStore{
		limiters: make(map[string]*clientLimiter),
		every:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
	}

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			store.sweep(now)
		}
	}()

	return func(c *fiber.Ctx) error {
		if !store.allow(c.IP(), time.Now()) {
			return utils.TooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
		}
		return c.Next()
	}
}

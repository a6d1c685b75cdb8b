package middleware

import (
	"LivenessGolang/pkg/response"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
	"net/http"
	"sync"
	"time"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

// limiterIdleTTL is how long a client may stay silent before its bucket is
// dropped. A returning client starts again with a full burst.
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	bucket    map[string]*limiterEntry
	rate      rate.Limit
	burstSize int
	mutex     *sync.Mutex
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    make(map[string]*limiterEntry),
		rate:      reqRate,
		burstSize: burstSize,
		mutex:     &sync.Mutex{},
		idleTTL:   limiterIdleTTL,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (r *rateLimiter) GetLimiterFrom(ip string) *rate.Limiter {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.idleTTL {
		r.evictIdle(now)
	}

	entry, exist := r.bucket[ip]
	if !exist {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.rate, r.burstSize)}
		r.bucket[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

// evictIdle must be called with the mutex held.
func (r *rateLimiter) evictIdle(now time.Time) {
	for ip, entry := range r.bucket {
		if now.Sub(entry.lastSeen) >= r.idleTTL {
			delete(r.bucket, ip)
		}
	}
	r.lastSweep = now
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	limiter := m.rateLimitter.GetLimiterFrom(clientIP)

	if !limiter.Allow() {
		m.log.Warnf("too many requests for IP %s", clientIP)
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": ErrTooManyRequests.Error(),
		})
	}

	return ctx.Next()
}

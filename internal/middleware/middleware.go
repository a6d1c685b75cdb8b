package middleware

import (
	jwtPkg "LivenessGolang/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewTokenMiddleware(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	NewLoggingMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
}

type Options struct {
	// RequestsPerSecond and Burst bound new connections and REST calls per
	// client IP. Frames on an open websocket are not counted.
	RequestsPerSecond float64
	Burst             int
}

func DefaultOptions() Options {
	return Options{
		RequestsPerSecond: 50,
		Burst:             100,
	}
}

type middleware struct {
	tokens              jwtPkg.ITokenIssuer
	rateLimitter        *rateLimiter
	loggingMiddleware   fiber.Handler
	requestIDMiddleware fiber.Handler
	log                 *logrus.Logger
}

// New builds the middleware set. tokens may be nil, in which case token
// protected routes answer 503.
func New(logger *logrus.Logger, tokens jwtPkg.ITokenIssuer, opts Options) Middleware {
	return &middleware{
		tokens:              tokens,
		rateLimitter:        newRateLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		loggingMiddleware:   LoggerConfig(),
		requestIDMiddleware: NewRequestIDMiddleware(),
		log:                 logger,
	}
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestIDMiddleware
}

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return m.loggingMiddleware
}

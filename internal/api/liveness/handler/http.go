package livenessHandler

import (
	livenessService "LivenessGolang/internal/api/liveness/service"
	"LivenessGolang/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"time"
)

type Options struct {
	// IdleTimeout closes a websocket that sends nothing for this long. Zero
	// keeps the connection open until the client leaves.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
}

type LivenessHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	livenessService livenessService.ILivenessService
	opts            Options
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ls livenessService.ILivenessService,
	opts Options,
) *LivenessHandler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &LivenessHandler{
		log:             log,
		validator:       validator,
		middleware:      middleware,
		livenessService: ls,
		opts:            opts,
	}
}

func wsMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *LivenessHandler) Start(srv fiber.Router) {
	liveness := srv.Group("/liveness")
	liveness.Use("/ws", h.middleware.NewRateLimiter, wsMiddleware)
	liveness.Get("/ws", websocket.New(h.handleWebSocket))
	liveness.Get("/sessions/:id", h.middleware.NewRateLimiter, h.GetSession)
	liveness.Get("/token", h.middleware.NewTokenMiddleware, h.GetTokenClaims)
}

// StartRoot mounts the websocket on /ws, the path existing browser clients
// connect to.
func (h *LivenessHandler) StartRoot(app fiber.Router) {
	app.Use("/ws", h.middleware.NewRateLimiter, wsMiddleware)
	app.Get("/ws", websocket.New(h.handleWebSocket))
}

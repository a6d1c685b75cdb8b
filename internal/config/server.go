package config

import (
	"LivenessGolang/database/postgres"
	livenessHandler "LivenessGolang/internal/api/liveness/handler"
	livenessRepository "LivenessGolang/internal/api/liveness/repository"
	livenessService "LivenessGolang/internal/api/liveness/service"
	"LivenessGolang/internal/middleware"
	jwtPkg "LivenessGolang/pkg/jwt"
	"LivenessGolang/pkg/landmark"
	"LivenessGolang/pkg/redis"
	"LivenessGolang/pkg/s3"
	"LivenessGolang/pkg/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine          *fiber.App
	db              *sqlx.DB
	log             *logrus.Logger
	cfg             *LivenessConfig
	middleware      middleware.Middleware
	validator       *validator.Validate
	utils           utils.IUtils
	handlers        []handler
	detector        *landmark.Pool
	redisServer     redis.IRedis
	tokenIssuer     jwtPkg.ITokenIssuer
	s3Client        s3.ItfS3
	livenessService livenessService.ILivenessService
}

type handler interface {
	Start(srv fiber.Router)
}

// rootHandler is implemented by handlers that also serve paths outside /api/v1.
type rootHandler interface {
	StartRoot(app fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("liveness config is required")
	}
	if server.detector == nil {
		return nil, fmt.Errorf("landmark detector pool is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, server.tokenIssuer, middleware.DefaultOptions())
	}
	if server.utils == nil {
		server.utils = utils.NewWithMaxFrameSize(server.cfg.MaxFrameBytes)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithLivenessConfig(cfg *LivenessConfig) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithDetectorPool(pool *landmark.Pool) ServerOption {
	return func(s *Server) error {
		s.detector = pool
		return nil
	}
}

// WithDatabase connects the audit store. An empty dsn leaves auditing off.
func WithDatabase(opts postgres.Options) ServerOption {
	return func(s *Server) error {
		if opts.DSN == "" {
			if s.log != nil {
				s.log.Warn("DATABASE_URL not set, session audit disabled")
			}
			return nil
		}

		db, err := postgres.New(opts)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

// WithTokenIssuer enables liveness tokens. An empty secret leaves them off.
func WithTokenIssuer(secret string, ttl time.Duration) ServerOption {
	return func(s *Server) error {
		issuer, err := jwtPkg.New(secret, ttl)
		if errors.Is(err, jwtPkg.ErrMissingSecret) {
			if s.log != nil {
				s.log.Warn("LIVENESS_TOKEN_SECRET not set, liveness tokens disabled")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to create token issuer: %w", err)
		}
		s.tokenIssuer = issuer
		return nil
	}
}

func WithMiddleware(opts middleware.Options) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, s.tokenIssuer, opts)
		return nil
	}
}

func WithS3Client(opts s3.Options) ServerOption {
	return func(s *Server) error {
		client, err := s3.New(opts)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils(maxFrameBytes int) ServerOption {
	return func(s *Server) error {
		s.utils = utils.NewWithMaxFrameSize(maxFrameBytes)
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	var repo livenessRepository.Repository
	if s.db != nil {
		repo = livenessRepository.New(s.db, s.log)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate liveness sessions: %w", err)
		}
	}

	s.livenessService = livenessService.New(s.log, s.cfg.ServiceConfig(), s.detector, s.utils, repo, s.redisServer, s.tokenIssuer, s.s3Client)
	livenessHandlers := livenessHandler.New(s.log, s.validator, s.middleware, s.livenessService, livenessHandler.Options{
		IdleTimeout: s.cfg.IdleTimeout,
	})

	s.handlers = append(s.handlers, livenessHandlers)
	return nil
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		if rh, ok := h.(rootHandler); ok {
			rh.StartRoot(s.engine)
		}
		h.Start(router)
	}

	return s.engine.Listen(fmt.Sprintf(":%s", s.cfg.Port))
}

// Shutdown stops accepting connections, then releases the detector pool and
// the stores.
func (s *Server) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("fiber shutdown: %w", err))
	}
	if err := s.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("detector pool: %w", err))
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":         "Server is Healthy!",
			"active_sessions": s.livenessService.ActiveSessions(),
			"detector_pool":   s.detector.Size(),
		})
	})
}

package main

import (
	"LivenessGolang/database/postgres"
	"LivenessGolang/internal/config"
	"LivenessGolang/internal/middleware"
	"LivenessGolang/pkg/landmark"
	"LivenessGolang/pkg/log"
	"LivenessGolang/pkg/redis"
	"LivenessGolang/pkg/s3"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	validator := config.NewValidator()
	cfg, err := config.LoadLivenessConfig(validator)
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "Error loading configuration")
	}

	detectorOpts := landmark.DefaultOptions(cfg.Detector.URL)
	detectorOpts.ReadTimeout = cfg.Detector.ReadTimeout
	detectorOpts.WriteTimeout = cfg.Detector.WriteTimeout
	pool, err := landmark.NewPool(cfg.Detector.PoolSize, func() (landmark.Detector, error) {
		return landmark.NewWebSocketClient(detectorOpts, logger), nil
	})
	if err != nil {
		log.Fatal(log.Fields{
			"error":     err.Error(),
			"pool_size": cfg.Detector.PoolSize,
		}, "Error creating detector pool")
	}

	options := []config.ServerOption{
		config.WithFiber(config.NewFiber(logger)),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithLivenessConfig(cfg),
		config.WithDetectorPool(pool),
		config.WithDatabase(postgres.Options{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		}),
		config.WithTokenIssuer(cfg.TokenSecret, cfg.TokenTTL),
		config.WithMiddleware(middleware.Options{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
		config.WithUtils(cfg.MaxFrameBytes),
	}

	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		options = append(options, config.WithRedisServer(redis.New(redis.Options{
			Address:  addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		})))
	}

	if cfg.StoreSnapshots {
		options = append(options, config.WithS3Client(s3.Options{
			Region:          os.Getenv("AWS_REGION"),
			Bucket:          os.Getenv("AWS_BUCKET_NAME"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        os.Getenv("AWS_ENDPOINT"),
		}))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(); err != nil {
		logger.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}

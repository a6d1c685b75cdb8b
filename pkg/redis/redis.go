package redis

import (
	"LivenessGolang/internal/entity"
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("verification result not found")

const keyPrefix = "liveness:session:"

type IRedis interface {
	SetVerification(ctx context.Context, result entity.VerificationResult, expiration time.Duration) error
	GetVerification(ctx context.Context, sessionID string) (entity.VerificationResult, error)
	Close() error
}

type Options struct {
	Address  string
	Password string
	DB       int
}

type redisClient struct {
	client *redis.Client
}

func New(opts Options) IRedis {
	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", opts.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (r *redisClient) SetVerification(ctx context.Context, result entity.VerificationResult, expiration time.Duration) error {
	key := sessionKey(result.SessionID)
	logrus.Debug(fmt.Sprintf("Caching verification for key %s with expiration %v", key, expiration))

	payload, err := jsoniter.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal verification result: %w", err)
	}

	if err := r.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error caching verification for key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) GetVerification(ctx context.Context, sessionID string) (entity.VerificationResult, error) {
	key := sessionKey(sessionID)

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Verification not found for key %s", key))
		return entity.VerificationResult{}, ErrNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting verification for key %s: %v", key, err))
		return entity.VerificationResult{}, err
	}

	var result entity.VerificationResult
	if err := jsoniter.Unmarshal(val, &result); err != nil {
		return entity.VerificationResult{}, fmt.Errorf("failed to unmarshal verification result: %w", err)
	}
	return result, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

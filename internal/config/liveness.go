package config

import (
	"LivenessGolang/internal/api/liveness"
	livenessService "LivenessGolang/internal/api/liveness/service"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LivenessConfig is read from the environment. When LIVENESS_CONFIG_FILE
// points at a YAML file its values are applied first and the environment
// still wins.
type LivenessConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`

	Blink BlinkConfig `yaml:"blink"`

	DecodeFailurePolicy string        `yaml:"decode_failure_policy" validate:"oneof=drop report"`
	MaxFrameBytes       int           `yaml:"max_frame_bytes" validate:"gt=0"`
	IdleTimeout         time.Duration `yaml:"idle_timeout" validate:"gte=0"`

	Detector DetectorConfig `yaml:"detector"`

	ResultTTL      time.Duration `yaml:"result_ttl" validate:"gt=0"`
	TokenSecret    string        `yaml:"-"`
	TokenTTL       time.Duration `yaml:"token_ttl" validate:"gt=0"`
	StoreSnapshots bool          `yaml:"store_snapshots"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type BlinkConfig struct {
	Threshold       float64 `yaml:"threshold" validate:"gt=0,lt=1"`
	RequiredBlinks  int     `yaml:"required_blinks" validate:"gte=1"`
	MinClosedFrames int     `yaml:"min_closed_frames" validate:"gte=1"`
}

type DetectorConfig struct {
	URL          string        `yaml:"url" validate:"required,url"`
	PoolSize     int           `yaml:"pool_size" validate:"gte=1,lte=64"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" validate:"gte=1"`
}

func DefaultLivenessConfig() LivenessConfig {
	blink := livenessService.DefaultBlinkConfig()
	return LivenessConfig{
		Port: "3000",
		Blink: BlinkConfig{
			Threshold:       blink.Threshold,
			RequiredBlinks:  blink.RequiredBlinks,
			MinClosedFrames: blink.MinClosedFrames,
		},
		DecodeFailurePolicy: string(liveness.DecodeFailureDrop),
		MaxFrameBytes:       5 * 1024 * 1024,
		Detector: DetectorConfig{
			URL:          "ws://localhost:8765/landmarks",
			PoolSize:     4,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		ResultTTL: 24 * time.Hour,
		TokenTTL:  15 * time.Minute,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}
}

func LoadLivenessConfig(validate *validator.Validate) (*LivenessConfig, error) {
	cfg := DefaultLivenessConfig()

	if path := os.Getenv("LIVENESS_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read liveness config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse liveness config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid liveness config: %w", err)
	}

	return &cfg, nil
}

func (c *LivenessConfig) applyEnv() error {
	envString("APP_PORT", &c.Port)
	envString("LIVENESS_DECODE_FAILURE_POLICY", &c.DecodeFailurePolicy)
	envString("FACE_MESH_URL", &c.Detector.URL)
	envString("LIVENESS_TOKEN_SECRET", &c.TokenSecret)

	parsers := []error{
		envFloat("LIVENESS_EAR_THRESHOLD", &c.Blink.Threshold),
		envInt("LIVENESS_REQUIRED_BLINKS", &c.Blink.RequiredBlinks),
		envInt("LIVENESS_MIN_CLOSED_FRAMES", &c.Blink.MinClosedFrames),
		envInt("LIVENESS_MAX_FRAME_BYTES", &c.MaxFrameBytes),
		envDuration("LIVENESS_IDLE_TIMEOUT", &c.IdleTimeout),
		envInt("FACE_MESH_POOL_SIZE", &c.Detector.PoolSize),
		envDuration("FACE_MESH_READ_TIMEOUT", &c.Detector.ReadTimeout),
		envDuration("FACE_MESH_WRITE_TIMEOUT", &c.Detector.WriteTimeout),
		envDuration("LIVENESS_RESULT_TTL", &c.ResultTTL),
		envDuration("LIVENESS_TOKEN_TTL", &c.TokenTTL),
		envBool("LIVENESS_STORE_SNAPSHOTS", &c.StoreSnapshots),
		envFloat("RATE_LIMIT_RPS", &c.RateLimit.RequestsPerSecond),
		envInt("RATE_LIMIT_BURST", &c.RateLimit.Burst),
	}
	for _, err := range parsers {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *LivenessConfig) ServiceConfig() livenessService.Config {
	return livenessService.Config{
		Blink: livenessService.BlinkConfig{
			Threshold:       c.Blink.Threshold,
			RequiredBlinks:  c.Blink.RequiredBlinks,
			MinClosedFrames: c.Blink.MinClosedFrames,
		},
		DecodeFailurePolicy: liveness.DecodeFailurePolicy(c.DecodeFailurePolicy),
		ResultTTL:           c.ResultTTL,
		StoreSnapshots:      c.StoreSnapshots,
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

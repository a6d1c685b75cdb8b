package livenessService

import (
	"LivenessGolang/internal/api/liveness"
	livenessRepository "LivenessGolang/internal/api/liveness/repository"
	jwtPkg "LivenessGolang/pkg/jwt"
	"LivenessGolang/pkg/landmark"
	"LivenessGolang/pkg/redis"
	"LivenessGolang/pkg/s3"
	"LivenessGolang/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

type ILivenessService interface {
	OpenSession(ctx context.Context, remoteAddr string) (*Session, error)
	ProcessFrame(ctx context.Context, sess *Session, payload string) (*liveness.FrameResponse, error)
	CloseSession(ctx context.Context, sess *Session)
	ActiveSessions() int
	GetVerification(ctx context.Context, sessionID string) (*liveness.SessionResultResponse, error)
	VerifyToken(token string) (*jwtPkg.LivenessClaims, error)
}

type Config struct {
	Blink               BlinkConfig
	DecodeFailurePolicy liveness.DecodeFailurePolicy
	ResultTTL           time.Duration
	StoreSnapshots      bool
}

func DefaultConfig() Config {
	return Config{
		Blink:               DefaultBlinkConfig(),
		DecodeFailurePolicy: liveness.DecodeFailureDrop,
		ResultTTL:           24 * time.Hour,
	}
}

type livenessService struct {
	log         *logrus.Logger
	cfg         Config
	detector    landmark.Detector
	utils       utils.IUtils
	repo        livenessRepository.Repository
	redisServer redis.IRedis
	tokens      jwtPkg.ITokenIssuer
	s3Client    s3.ItfS3
	sessions    *registry
	now         func() time.Time
}

// New wires the liveness service. repo, redisServer, tokens and s3Client may
// be nil; the matching side effect is then skipped.
func New(log *logrus.Logger,
	cfg Config,
	detector landmark.Detector,
	utils utils.IUtils,
	repo livenessRepository.Repository,
	redisServer redis.IRedis,
	tokens jwtPkg.ITokenIssuer,
	s3Client s3.ItfS3,
) ILivenessService {
	return &livenessService{
		log:         log,
		cfg:         cfg,
		detector:    detector,
		utils:       utils,
		repo:        repo,
		redisServer: redisServer,
		tokens:      tokens,
		s3Client:    s3Client,
		sessions:    newRegistry(),
		now:         time.Now,
	}
}

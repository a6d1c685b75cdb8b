package jwtPkg

import (
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"strings"
	"time"
)

const Issuer = "liveness-service"

var ErrMissingSecret = errors.New("liveness token secret not configured")

// LivenessClaims is the proof handed to the client once blinks were verified.
type LivenessClaims struct {
	Blinks   int  `json:"blinks"`
	Verified bool `json:"verified"`
	jwt.RegisteredClaims
}

type ITokenIssuer interface {
	Sign(sessionID string, blinks int, verifiedAt time.Time) (string, int64, error)
	Verify(token string) (*LivenessClaims, error)
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) (ITokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &tokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

func (t *tokenIssuer) Sign(sessionID string, blinks int, verifiedAt time.Time) (string, int64, error) {
	expiredAt := verifiedAt.Add(t.ttl)

	claims := LivenessClaims{
		Blinks:   blinks,
		Verified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(verifiedAt),
			ExpiresAt: jwt.NewNumericDate(expiredAt),
		},
	}

	logrus.WithField("session_id", sessionID).Debug("Creating liveness token")

	to := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := to.SignedString(t.secret)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign liveness token")
		return "", 0, err
	}

	return signed, expiredAt.Unix(), nil
}

func (t *tokenIssuer) Verify(token string) (*LivenessClaims, error) {
	claims := &LivenessClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}

	if !parsed.Valid || !claims.Verified || claims.Subject == "" {
		return nil, errors.New("invalid liveness token")
	}

	return claims, nil
}

func BearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", errors.New("empty Authorization header")
	}

	parts := strings.Split(header, "Bearer ")
	if len(parts) != 2 {
		return "", errors.New("invalid Authorization format")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty token")
	}

	return token, nil
}

func GetLivenessClaims(c *fiber.Ctx) (*LivenessClaims, error) {
	claims, ok := c.Locals("liveness").(*LivenessClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

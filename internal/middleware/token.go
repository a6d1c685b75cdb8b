package middleware

import (
	jwtPkg "LivenessGolang/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const LivenessClaimsKey = "liveness"

// NewTokenMiddleware accepts only liveness tokens issued by this service and
// stores the claims under LivenessClaimsKey.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	if m.tokens == nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "liveness tokens are not enabled",
		})
	}

	token, err := jwtPkg.BearerToken(ctx)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"client_ip": ctx.IP(),
			"error":     err.Error(),
		}).Warn("Authorization header check")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, liveness token invalid or expired",
		})
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":      ctx.Path(),
			"client_ip": ctx.IP(),
			"error":     err.Error(),
		}).Warn("Token verification failed")
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized, liveness token invalid or expired",
		})
	}

	ctx.Locals(LivenessClaimsKey, claims)

	m.log.WithFields(logrus.Fields{
		"session_id": claims.Subject,
	}).Debug("Liveness token accepted")
	return ctx.Next()
}

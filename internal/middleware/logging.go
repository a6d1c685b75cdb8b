package middleware

import (
	"LivenessGolang/pkg/log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

func LoggerConfig() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		c.Locals(log.RequestIDKey, requestID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		if err != nil && status == fiber.StatusInternalServerError {
			return err
		}

		logFields := log.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get("User-Agent"),
			"response_size": len(c.Response().Body()),
		}

		if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
			logFields["authorization"] = redactAuthorization(auth)
		}

		switch {
		case status == fiber.StatusSwitchingProtocols:
			log.Info(logFields, "Websocket upgraded")
		case status >= 500:
			log.Error(logFields, "Server error")
		case status >= 400:
			log.Warn(logFields, "Client error")
		default:
			log.Info(logFields, "Success")
		}

		return err
	}
}

func redactAuthorization(header string) string {
	scheme, _, found := strings.Cut(header, " ")
	if !found {
		return "[SECRET]"
	}
	return scheme + " [SECRET]"
}

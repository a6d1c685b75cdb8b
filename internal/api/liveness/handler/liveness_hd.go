package livenessHandler

import (
	"LivenessGolang/internal/api/liveness"
	"LivenessGolang/internal/middleware"
	contextPkg "LivenessGolang/pkg/context"
	"LivenessGolang/pkg/handlerUtil"
	jwtPkg "LivenessGolang/pkg/jwt"
	"LivenessGolang/pkg/log"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
)

func (h *LivenessHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx := contextPkg.WithRequestID(context.Background(), requestID)

	sess, err := h.livenessService.OpenSession(ctx, c.RemoteAddr().String())
	if err != nil {
		log.WithContext(h.log, ctx).WithError(err).Error("Failed to open liveness session")
		closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable")
		if err := c.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(h.opts.WriteTimeout)); err != nil {
			h.log.Errorf("Error sending close frame: %v", err)
		}
		return
	}
	ctx = contextPkg.WithSessionID(ctx, sess.ID)
	defer h.livenessService.CloseSession(ctx, sess)
	entry := log.WithContext(h.log, ctx)

	c.SetPingHandler(func(data string) error {
		h.log.Debug("Received ping, sending pong")
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if h.opts.IdleTimeout > 0 {
			if err := c.SetReadDeadline(time.Now().Add(h.opts.IdleTimeout)); err != nil {
				h.log.Errorf("Error setting read deadline: %v", err)
				break
			}
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				entry.WithError(err).Error("Liveness WebSocket error")
			}
			break
		}

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		resp, err := h.livenessService.ProcessFrame(ctx, sess, string(message))
		if err != nil {
			entry.WithError(err).Debug("Frame dropped")
			continue
		}

		if !h.writeJSON(c, resp) {
			break
		}
	}
}

func (h *LivenessHandler) writeJSON(c *websocket.Conn, resp *liveness.FrameResponse) bool {
	payload, err := jsoniter.Marshal(resp)
	if err != nil {
		h.log.Errorf("Error encoding frame response: %v", err)
		return false
	}

	if err := c.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout)); err != nil {
		h.log.Errorf("Error setting write deadline: %v", err)
		return false
	}

	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.log.Errorf("Error writing frame response: %v", err)
		return false
	}

	return true
}

func (h *LivenessHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var param liveness.SessionParam
	if err := ctx.ParamsParser(&param); err != nil {
		return errHandler.Handle(ctx, requestID, liveness.ErrBadRequest, ctx.Path(), "parse_params")
	}

	if err := h.validator.Struct(param); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.livenessService.GetVerification(c, param.ID)
	if err != nil {
		if errors.Is(c.Err(), context.DeadlineExceeded) {
			return errHandler.HandleRequestTimeout(ctx)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_verification")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *LivenessHandler) GetTokenClaims(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	claims, err := jwtPkg.GetLivenessClaims(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, liveness.ErrInvalidToken, ctx.Path(), "get_token_claims")
	}

	resp := liveness.TokenClaimsResponse{
		SessionID: claims.Subject,
		Blinks:    claims.Blinks,
		Verified:  claims.Verified,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

package livenessService

import (
	"LivenessGolang/internal/api/liveness"
	"LivenessGolang/internal/entity"
	contextPkg "LivenessGolang/pkg/context"
	"LivenessGolang/pkg/ear"
	jwtPkg "LivenessGolang/pkg/jwt"
	"LivenessGolang/pkg/landmark"
	"LivenessGolang/pkg/log"
	"LivenessGolang/pkg/redis"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

const persistTimeout = 5 * time.Second

func (s *livenessService) OpenSession(ctx context.Context, remoteAddr string) (*Session, error) {
	now := s.now()
	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to generate session id")
		return nil, liveness.ErrInternalServerError
	}

	sess := newSession(id, remoteAddr, s.cfg.Blink, now)
	s.sessions.add(sess)

	log.WithContext(s.log, contextPkg.WithSessionID(ctx, id)).
		WithField("remote_addr", remoteAddr).
		Info("Liveness session opened")

	return sess, nil
}

// ProcessFrame runs one client frame through decode, detection and the blink
// state machine. A nil response with a non-nil error means the frame was
// dropped and nothing should be sent back. Log entries take the session id
// from ctx.
func (s *livenessService) ProcessFrame(ctx context.Context, sess *Session, payload string) (*liveness.FrameResponse, error) {
	sess.Frames++
	entry := log.WithContext(s.log, ctx)

	if sess.Verified() {
		return sess.verifiedResponse(), nil
	}

	frame, err := s.utils.DecodeDataURL(payload)
	if err != nil {
		if s.cfg.DecodeFailurePolicy == liveness.DecodeFailureReport {
			return sess.errorResponse(err), nil
		}
		return nil, fmt.Errorf("%w: %v", liveness.ErrInvalidFrame, err)
	}

	landmarks, err := s.detector.Detect(ctx, frame.Data)
	if err != nil {
		entry.WithError(err).Warn("Landmark detection failed")
		return sess.errorResponse(detectorFault(err)), nil
	}

	if !landmarks.HasFace() {
		return sess.respond(liveness.StatusNoFace, liveness.MessageNoFace), nil
	}

	avg, err := ear.FromLandmarks(landmarks.Primary())
	if err != nil {
		entry.WithError(err).Debug("Skipping frame with unusable eye landmarks")
		return sess.errorResponse(err), nil
	}

	if sess.machine.Observe(avg) {
		s.onVerified(ctx, sess, frame)
		return sess.verifiedResponse(), nil
	}

	entry.WithFields(logrus.Fields{
		"ear":       avg,
		"eye_state": sess.EyeState().String(),
		"blinks":    sess.BlinkCount(),
	}).Debug("Frame processed")

	return sess.respond(liveness.StatusFaceDetected, liveness.MessageBlink), nil
}

// onVerified records the verification. Failures here are logged and never
// change the response the client receives.
func (s *livenessService) onVerified(ctx context.Context, sess *Session, frame *entity.Frame) {
	sess.VerifiedAt = s.now()
	entry := log.WithContext(s.log, ctx).WithField("blinks", sess.BlinkCount())

	if s.s3Client != nil && s.cfg.StoreSnapshots {
		key, err := s.s3Client.UploadSnapshot(ctx, sess.ID, frame)
		if err != nil {
			entry.WithError(err).Error("Failed to upload verification snapshot")
		} else {
			sess.SnapshotKey = key
		}
	}

	if s.tokens != nil {
		token, _, err := s.tokens.Sign(sess.ID, sess.BlinkCount(), sess.VerifiedAt)
		if err != nil {
			entry.WithError(err).Error("Failed to sign liveness token")
		} else {
			sess.Token = token
		}
	}

	if s.redisServer != nil {
		if err := s.redisServer.SetVerification(ctx, sess.result(), s.cfg.ResultTTL); err != nil {
			entry.WithError(err).Error("Failed to cache verification result")
		}
	}

	entry.Info("Person verified")
}

func (s *livenessService) CloseSession(ctx context.Context, sess *Session) {
	s.sessions.remove(sess.ID)

	entry := log.WithContext(s.log, ctx).WithFields(logrus.Fields{
		"frames":   sess.Frames,
		"blinks":   sess.BlinkCount(),
		"verified": sess.Verified(),
	})
	entry.Info("Liveness session closed")

	if s.repo == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	persistCtx = contextPkg.WithSessionID(contextPkg.WithRequestID(persistCtx, contextPkg.GetRequestID(ctx)), sess.ID)

	client, err := s.repo.NewClient(false)
	if err != nil {
		entry.WithError(err).Error("Failed to open repository client")
		return
	}

	if err := client.Sessions.CreateSession(persistCtx, sess.record(s.now())); err != nil {
		entry.WithError(err).Error("Failed to record liveness session")
	}
}

// detectorFault maps a detector error to the text a client may see. Transport
// detail such as the detector address stays in the logs.
func detectorFault(err error) error {
	if errors.Is(err, landmark.ErrDetectorUnavailable) || errors.Is(err, landmark.ErrPoolClosed) {
		return landmark.ErrDetectorUnavailable
	}
	return landmark.ErrDetection
}

func (s *livenessService) ActiveSessions() int {
	return s.sessions.count()
}

func (s *livenessService) GetVerification(ctx context.Context, sessionID string) (*liveness.SessionResultResponse, error) {
	result, err := s.lookupVerification(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &liveness.SessionResultResponse{
		SessionID:  result.SessionID,
		Blinks:     result.Blinks,
		Verified:   result.Verified,
		VerifiedAt: result.VerifiedAt,
	}

	if result.SnapshotKey != "" && s.s3Client != nil {
		url, err := s.s3Client.PresignUrl(result.SnapshotKey)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Failed to presign snapshot url")
		} else {
			resp.SnapshotURL = url
		}
	}

	return resp, nil
}

func (s *livenessService) lookupVerification(ctx context.Context, sessionID string) (entity.VerificationResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if s.redisServer != nil {
		result, err := s.redisServer.GetVerification(ctx, sessionID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.ErrNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Verification cache lookup failed")
		}
	}

	if s.repo == nil {
		return entity.VerificationResult{}, liveness.ErrSessionNotFound
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return entity.VerificationResult{}, liveness.ErrInternalServerError
	}

	record, err := client.Sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, liveness.ErrSessionNotFound) {
			return entity.VerificationResult{}, liveness.ErrSessionNotFound
		}
		return entity.VerificationResult{}, liveness.ErrInternalServerError
	}

	result := entity.VerificationResult{
		SessionID:   record.ID,
		Blinks:      record.Blinks,
		Verified:    record.Verified,
		SnapshotKey: record.SnapshotKey,
	}
	if record.VerifiedAt != nil {
		result.VerifiedAt = *record.VerifiedAt
	}
	return result, nil
}

func (s *livenessService) VerifyToken(token string) (*jwtPkg.LivenessClaims, error) {
	if s.tokens == nil {
		return nil, liveness.ErrTokenUnavailable
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.log.WithError(err).Debug("Liveness token rejected")
		return nil, liveness.ErrInvalidToken
	}
	return claims, nil
}

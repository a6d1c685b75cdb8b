package livenessService

import (
	"LivenessGolang/internal/api/liveness"
	"LivenessGolang/internal/entity"
	"time"
)

// Session is the state of one client connection. It is owned by the
// goroutine reading that connection and is never shared.
type Session struct {
	ID          string
	RemoteAddr  string
	StartedAt   time.Time
	VerifiedAt  time.Time
	Frames      int
	SnapshotKey string
	Token       string

	machine *BlinkStateMachine
}

func newSession(id, remoteAddr string, cfg BlinkConfig, now time.Time) *Session {
	return &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		StartedAt:  now,
		machine:    NewBlinkStateMachine(cfg),
	}
}

func (s *Session) BlinkCount() int {
	return s.machine.BlinkCount()
}

func (s *Session) EyeState() entity.EyeState {
	return s.machine.State()
}

func (s *Session) Verified() bool {
	return s.machine.Verified()
}

func (s *Session) respond(status, message string) *liveness.FrameResponse {
	return &liveness.FrameResponse{
		Status:  status,
		Message: message,
		Blinks:  s.BlinkCount(),
	}
}

func (s *Session) verifiedResponse() *liveness.FrameResponse {
	resp := s.respond(liveness.StatusVerified, liveness.MessageVerified)
	resp.SessionID = s.ID
	resp.Token = s.Token
	return resp
}

func (s *Session) errorResponse(err error) *liveness.FrameResponse {
	return s.respond(liveness.StatusError, err.Error())
}

func (s *Session) result() entity.VerificationResult {
	return entity.VerificationResult{
		SessionID:   s.ID,
		Blinks:      s.BlinkCount(),
		Verified:    s.Verified(),
		VerifiedAt:  s.VerifiedAt,
		SnapshotKey: s.SnapshotKey,
	}
}

func (s *Session) record(endedAt time.Time) entity.LivenessSession {
	rec := entity.LivenessSession{
		ID:          s.ID,
		RemoteAddr:  s.RemoteAddr,
		Frames:      s.Frames,
		Blinks:      s.BlinkCount(),
		Verified:    s.Verified(),
		SnapshotKey: s.SnapshotKey,
		StartedAt:   s.StartedAt,
		EndedAt:     endedAt,
	}
	if s.Verified() {
		verifiedAt := s.VerifiedAt
		rec.VerifiedAt = &verifiedAt
	}
	return rec
}

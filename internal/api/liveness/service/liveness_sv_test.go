package livenessService

import (
	"LivenessGolang/internal/api/liveness"
	"LivenessGolang/internal/entity"
	contextPkg "LivenessGolang/pkg/context"
	jwtPkg "LivenessGolang/pkg/jwt"
	"LivenessGolang/pkg/landmark"
	"LivenessGolang/pkg/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type fixture struct {
	svc      *livenessService
	detector *stubDetector
	redis    *stubRedis
	repo     *stubRepository
	s3       *stubS3
	tokens   jwtPkg.ITokenIssuer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	tokens, err := jwtPkg.New("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("jwtPkg.New: %v", err)
	}

	f := &fixture{
		detector: &stubDetector{},
		redis:    newStubRedis(),
		repo:     newStubRepository(),
		s3:       &stubS3{},
		tokens:   tokens,
	}
	f.svc = New(quietLogger(), cfg, f.detector, utils.New(), f.repo, f.redis, tokens, f.s3).(*livenessService)
	return f
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	sess, err := f.svc.OpenSession(context.Background(), "127.0.0.1:5000")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	return sess
}

func TestProcessFrameBlinkSequence(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.30, 0.30, 0.15, 0.15, 0.30, 0.30, 0.15, 0.30)
	wantBlinks := []int{0, 0, 0, 0, 1, 1, 1, 2}

	for i, want := range wantBlinks {
		resp, err := f.svc.ProcessFrame(context.Background(), sess, frame)
		if err != nil {
			t.Fatalf("frame %d: unexpected error %v", i, err)
		}
		if resp.Blinks != want {
			t.Fatalf("frame %d: blinks = %d, want %d", i, resp.Blinks, want)
		}
		if i < len(wantBlinks)-1 {
			if resp.Status != liveness.StatusFaceDetected || resp.Message != liveness.MessageBlink {
				t.Fatalf("frame %d: got %q/%q", i, resp.Status, resp.Message)
			}
			continue
		}
		if resp.Status != liveness.StatusVerified || resp.Message != liveness.MessageVerified {
			t.Fatalf("frame %d: got %q/%q, want verified", i, resp.Status, resp.Message)
		}
		if resp.SessionID != sess.ID || resp.Token == "" {
			t.Errorf("verified response missing session id or token: %+v", resp)
		}
	}
}

func TestProcessFrameVerifiedShortCircuits(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.1, 0.3, 0.1, 0.3)
	for i := 0; i < 4; i++ {
		if _, err := f.svc.ProcessFrame(context.Background(), sess, frame); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	callsAtVerification := f.detector.calls

	for _, payload := range []string{frame, "garbage that will not decode"} {
		resp, err := f.svc.ProcessFrame(context.Background(), sess, payload)
		if err != nil {
			t.Fatalf("verified session returned error: %v", err)
		}
		if resp.Status != liveness.StatusVerified || resp.Blinks != 2 {
			t.Errorf("got %+v, want verified with 2 blinks", resp)
		}
	}
	if f.detector.calls != callsAtVerification {
		t.Errorf("detector called %d more times after verification", f.detector.calls-callsAtVerification)
	}
}

func TestProcessFrameNoFace(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)
	frame := frameDataURL(t)

	// the stub detector reports no face once its queue is empty
	const frames = 500
	for i := 0; i < frames; i++ {
		resp, err := f.svc.ProcessFrame(context.Background(), sess, frame)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if resp.Status != liveness.StatusNoFace || resp.Message != liveness.MessageNoFace || resp.Blinks != 0 {
			t.Fatalf("frame %d: got %+v", i, resp)
		}
	}

	if sess.Verified() || sess.BlinkCount() != 0 {
		t.Errorf("verified=%v blinks=%d after %d no-face frames", sess.Verified(), sess.BlinkCount(), frames)
	}
	if sess.EyeState() != entity.EyeOpen {
		t.Errorf("eye state = %s, want open", sess.EyeState())
	}
	if f.detector.calls != frames {
		t.Errorf("detector calls = %d, want %d", f.detector.calls, frames)
	}
}

func TestProcessFrameNoFaceKeepsState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.1)
	f.detector.results = append(f.detector.results, detectResult{landmarks: &entity.FaceLandmarks{}})
	f.detector.queueEAR(0.3)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.ProcessFrame(context.Background(), sess, frame); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if sess.BlinkCount() != 1 {
		t.Errorf("blinks = %d, want 1 across a no-face gap", sess.BlinkCount())
	}
}

func TestProcessFrameDecodeFailure(t *testing.T) {
	t.Run("drop", func(t *testing.T) {
		f := newFixture(t, DefaultConfig())
		sess := f.open(t)

		resp, err := f.svc.ProcessFrame(context.Background(), sess, "data:image/png;base64,@@@")
		if resp != nil {
			t.Fatalf("dropped frame produced a response: %+v", resp)
		}
		if !errors.Is(err, liveness.ErrInvalidFrame) {
			t.Errorf("err = %v, want ErrInvalidFrame", err)
		}
		if f.detector.calls != 0 {
			t.Error("detector called for undecodable frame")
		}
	})

	t.Run("report", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DecodeFailurePolicy = liveness.DecodeFailureReport
		f := newFixture(t, cfg)
		sess := f.open(t)

		resp, err := f.svc.ProcessFrame(context.Background(), sess, "not an image")
		if err != nil {
			t.Fatalf("ProcessFrame: %v", err)
		}
		if resp.Status != liveness.StatusError || resp.Message == "" {
			t.Errorf("got %+v, want error response", resp)
		}
	})
}

func TestProcessFrameMissingEye(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.1)
	// 200 points cover the right eye but not the left eye ids.
	f.detector.results = append(f.detector.results, detectResult{
		landmarks: &entity.FaceLandmarks{Faces: []entity.LandmarkSet{make(entity.LandmarkSet, 200)}},
	})

	if _, err := f.svc.ProcessFrame(context.Background(), sess, frame); err != nil {
		t.Fatal(err)
	}
	resp, err := f.svc.ProcessFrame(context.Background(), sess, frame)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != liveness.StatusError || !strings.Contains(resp.Message, "left eye") {
		t.Errorf("got %+v, want left eye error", resp)
	}
	if sess.EyeState() != entity.EyeClosed {
		t.Errorf("eye state changed on a skipped frame: %s", sess.EyeState())
	}
}

func TestProcessFrameDegenerateGeometry(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)

	f.detector.results = append(f.detector.results, detectResult{
		landmarks: &entity.FaceLandmarks{Faces: []entity.LandmarkSet{make(entity.LandmarkSet, 478)}},
	})
	resp, err := f.svc.ProcessFrame(context.Background(), sess, frameDataURL(t))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != liveness.StatusError || !strings.Contains(resp.Message, "degenerate") {
		t.Errorf("got %+v, want degenerate geometry error", resp)
	}
}

func TestProcessFrameDetectorError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "transport failure hides detector address",
			err:  fmt.Errorf("%w: dial ws://internal-host:8765/landmarks: connection refused", landmark.ErrDetectorUnavailable),
			want: landmark.ErrDetectorUnavailable.Error(),
		},
		{
			name: "closed pool",
			err:  landmark.ErrPoolClosed,
			want: landmark.ErrDetectorUnavailable.Error(),
		},
		{
			name: "other failure",
			err:  errDetectorDown,
			want: landmark.ErrDetection.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			logger, hook := logtest.NewNullLogger()
			f.svc.log = logger
			sess := f.open(t)

			f.detector.results = append(f.detector.results, detectResult{err: tt.err})
			ctx := contextPkg.WithSessionID(context.Background(), sess.ID)
			resp, err := f.svc.ProcessFrame(ctx, sess, frameDataURL(t))
			if err != nil {
				t.Fatal(err)
			}
			if resp.Status != liveness.StatusError || resp.Message != tt.want {
				t.Errorf("got %+v, want message %q", resp, tt.want)
			}
			if strings.Contains(resp.Message, "internal-host") {
				t.Errorf("detector address leaked: %q", resp.Message)
			}

			entry := hook.LastEntry()
			if entry == nil || entry.Level != logrus.WarnLevel {
				t.Fatalf("last log entry = %+v, want warning", entry)
			}
			if entry.Data["session_id"] != sess.ID {
				t.Errorf("session_id = %v, want %s", entry.Data["session_id"], sess.ID)
			}
			if logged, _ := entry.Data[logrus.ErrorKey].(error); !errors.Is(logged, tt.err) {
				t.Errorf("logged error = %v, want %v", entry.Data[logrus.ErrorKey], tt.err)
			}
		})
	}
}

func TestVerificationSideEffects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreSnapshots = true
	cfg.ResultTTL = time.Minute
	f := newFixture(t, cfg)
	sess := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.1, 0.3, 0.1, 0.3)
	var last string
	for i := 0; i < 4; i++ {
		resp, err := f.svc.ProcessFrame(context.Background(), sess, frame)
		if err != nil {
			t.Fatal(err)
		}
		last = resp.Token
	}

	if f.s3.uploads != 1 {
		t.Errorf("snapshot uploads = %d, want 1", f.s3.uploads)
	}
	cached, ok := f.redis.results[sess.ID]
	if !ok || !cached.Verified || cached.Blinks != 2 || cached.SnapshotKey == "" {
		t.Errorf("cached result = %+v", cached)
	}
	if f.redis.ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", f.redis.ttl)
	}

	claims, err := f.svc.VerifyToken(last)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != sess.ID || claims.Blinks != 2 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerificationSideEffectFailuresAreIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreSnapshots = true
	f := newFixture(t, cfg)
	f.s3.err = errors.New("s3 down")
	f.redis.setErr = errors.New("redis down")
	sess := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.1, 0.3, 0.1, 0.3)
	var resp *liveness.FrameResponse
	for i := 0; i < 4; i++ {
		var err error
		if resp, err = f.svc.ProcessFrame(context.Background(), sess, frame); err != nil {
			t.Fatal(err)
		}
	}
	if resp.Status != liveness.StatusVerified {
		t.Errorf("status = %q, want verified", resp.Status)
	}
	if sess.SnapshotKey != "" {
		t.Errorf("snapshot key set despite upload failure")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := f.open(t)
	b := f.open(t)
	frame := frameDataURL(t)

	f.detector.queueEAR(0.1, 0.3)
	for i := 0; i < 2; i++ {
		if _, err := f.svc.ProcessFrame(context.Background(), a, frame); err != nil {
			t.Fatal(err)
		}
	}
	if a.BlinkCount() != 1 || b.BlinkCount() != 0 {
		t.Errorf("a=%d b=%d, want 1 0", a.BlinkCount(), b.BlinkCount())
	}
	if a.ID == b.ID {
		t.Error("sessions share an id")
	}
}

func TestCloseSessionRecordsAudit(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	sess := f.open(t)
	if f.svc.ActiveSessions() != 1 {
		t.Fatalf("active = %d, want 1", f.svc.ActiveSessions())
	}

	f.detector.queueEAR(0.1, 0.3, 0.1, 0.3)
	for i := 0; i < 4; i++ {
		if _, err := f.svc.ProcessFrame(context.Background(), sess, frameDataURL(t)); err != nil {
			t.Fatal(err)
		}
	}
	f.svc.CloseSession(context.Background(), sess)

	if f.svc.ActiveSessions() != 0 {
		t.Errorf("active = %d after close, want 0", f.svc.ActiveSessions())
	}
	rec, ok := f.repo.sessions.records[sess.ID]
	if !ok {
		t.Fatal("session not recorded")
	}
	if rec.Frames != 4 || rec.Blinks != 2 || !rec.Verified || rec.VerifiedAt == nil {
		t.Errorf("record = %+v", rec)
	}
}

func TestGetVerification(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	verifiedAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	f.redis.results["cached"] = entity.VerificationResult{
		SessionID: "cached", Blinks: 2, Verified: true, VerifiedAt: verifiedAt, SnapshotKey: "liveness/cached.png",
	}
	f.repo.sessions.records["stored"] = entity.LivenessSession{
		ID: "stored", Blinks: 1,
	}

	got, err := f.svc.GetVerification(context.Background(), "cached")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Verified || !got.VerifiedAt.Equal(verifiedAt) || got.SnapshotURL == "" {
		t.Errorf("cached = %+v", got)
	}

	got, err = f.svc.GetVerification(context.Background(), "stored")
	if err != nil {
		t.Fatal(err)
	}
	if got.Verified || got.Blinks != 1 {
		t.Errorf("stored = %+v", got)
	}

	if _, err := f.svc.GetVerification(context.Background(), "missing"); !errors.Is(err, liveness.ErrSessionNotFound) {
		t.Errorf("missing err = %v, want ErrSessionNotFound", err)
	}
}

func TestVerifyTokenWithoutIssuer(t *testing.T) {
	svc := New(quietLogger(), DefaultConfig(), &stubDetector{}, utils.New(), nil, nil, nil, nil)
	if _, err := svc.VerifyToken("x"); !errors.Is(err, liveness.ErrTokenUnavailable) {
		t.Errorf("err = %v, want ErrTokenUnavailable", err)
	}
	if _, err := svc.GetVerification(context.Background(), "x"); !errors.Is(err, liveness.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

package livenessService

import (
	"LivenessGolang/internal/api/liveness"
	livenessRepository "LivenessGolang/internal/api/liveness/repository"
	"LivenessGolang/internal/entity"
	"LivenessGolang/pkg/ear"
	"LivenessGolang/pkg/redis"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	xcontext "golang.org/x/net/context"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func frameDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// faceWithEAR builds a 478-point face whose eyes both measure the given EAR.
func faceWithEAR(value float64) entity.LandmarkSet {
	set := make(entity.LandmarkSet, 478)
	place := func(indices [6]int, offsetX float64) {
		pts := [6]entity.Point{
			{X: offsetX, Y: 0},
			{X: offsetX + 0.33, Y: value / 2},
			{X: offsetX + 0.66, Y: value / 2},
			{X: offsetX + 1, Y: 0},
			{X: offsetX + 0.66, Y: -value / 2},
			{X: offsetX + 0.33, Y: -value / 2},
		}
		for i, id := range indices {
			set[id] = pts[i]
		}
	}
	place(ear.LeftEyeIndices, 2)
	place(ear.RightEyeIndices, 0)
	return set
}

type detectResult struct {
	landmarks *entity.FaceLandmarks
	err       error
}

type stubDetector struct {
	mu      sync.Mutex
	results []detectResult
	calls   int
}

func (d *stubDetector) Detect(_ context.Context, _ []byte) (*entity.FaceLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.results) == 0 {
		return &entity.FaceLandmarks{}, nil
	}
	r := d.results[0]
	d.results = d.results[1:]
	return r.landmarks, r.err
}

func (d *stubDetector) Close() error { return nil }

func (d *stubDetector) queueEAR(values ...float64) {
	for _, v := range values {
		d.results = append(d.results, detectResult{
			landmarks: &entity.FaceLandmarks{Faces: []entity.LandmarkSet{faceWithEAR(v)}},
		})
	}
}

type stubRedis struct {
	mu      sync.Mutex
	results map[string]entity.VerificationResult
	ttl     time.Duration
	setErr  error
}

func newStubRedis() *stubRedis {
	return &stubRedis{results: make(map[string]entity.VerificationResult)}
}

func (r *stubRedis) SetVerification(_ context.Context, result entity.VerificationResult, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.results[result.SessionID] = result
	r.ttl = ttl
	return nil
}

func (r *stubRedis) GetVerification(_ context.Context, sessionID string) (entity.VerificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[sessionID]
	if !ok {
		return entity.VerificationResult{}, redis.ErrNotFound
	}
	return result, nil
}

func (r *stubRedis) Close() error { return nil }

type stubS3 struct {
	uploads int
	err     error
}

func (s *stubS3) UploadSnapshot(_ context.Context, sessionID string, frame *entity.Frame) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads++
	return "liveness/" + sessionID + "." + frame.Format, nil
}

func (s *stubS3) PresignUrl(key string) (string, error) {
	return "https://bucket.example/" + key, nil
}

type stubSessions struct {
	mu      sync.Mutex
	records map[string]entity.LivenessSession
}

func (s *stubSessions) CreateSession(_ xcontext.Context, session entity.LivenessSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[session.ID]; ok {
		return livenessRepository.ErrDuplicateSession
	}
	s.records[session.ID] = session
	return nil
}

func (s *stubSessions) GetSessionByID(_ xcontext.Context, id string) (entity.LivenessSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return entity.LivenessSession{}, liveness.ErrSessionNotFound
	}
	return rec, nil
}

type stubRepository struct {
	sessions *stubSessions
}

func newStubRepository() *stubRepository {
	return &stubRepository{sessions: &stubSessions{records: make(map[string]entity.LivenessSession)}}
}

func (r *stubRepository) NewClient(bool) (livenessRepository.Client, error) {
	noop := func() error { return nil }
	return livenessRepository.Client{Sessions: r.sessions, Commit: noop, Rollback: noop}, nil
}

func (r *stubRepository) Migrate(xcontext.Context) error { return nil }

var errDetectorDown = errors.New("face mesh returned malformed landmarks")

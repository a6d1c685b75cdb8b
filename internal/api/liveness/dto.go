package liveness

import "time"

const (
	StatusNoFace       = "No Face"
	StatusFaceDetected = "Face Detected"
	StatusVerified     = "verified"
	StatusError        = "error"

	MessageNoFace   = "Please look at the camera"
	MessageBlink    = "Blink to Verify"
	MessageVerified = "Person Verified"
)

type DecodeFailurePolicy string

const (
	DecodeFailureDrop   DecodeFailurePolicy = "drop"
	DecodeFailureReport DecodeFailurePolicy = "report"
)

// FrameResponse is sent back for every processed client frame.
type FrameResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Blinks    int    `json:"blinks"`
	SessionID string `json:"session_id,omitempty"`
	Token     string `json:"token,omitempty"`
}

type SessionParam struct {
	ID string `params:"id" validate:"required,alphanum,len=26"`
}

type SessionResultResponse struct {
	SessionID   string    `json:"session_id"`
	Blinks      int       `json:"blinks"`
	Verified    bool      `json:"verified"`
	VerifiedAt  time.Time `json:"verified_at,omitempty"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
}

type TokenClaimsResponse struct {
	SessionID string    `json:"session_id"`
	Blinks    int       `json:"blinks"`
	Verified  bool      `json:"verified"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

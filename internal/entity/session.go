package entity

import "time"

// LivenessSession is the audit record written when a connection closes.
type LivenessSession struct {
	ID          string
	RemoteAddr  string
	Frames      int
	Blinks      int
	Verified    bool
	SnapshotKey string
	StartedAt   time.Time
	EndedAt     time.Time
	VerifiedAt  *time.Time
}

type VerificationResult struct {
	SessionID   string    `json:"session_id"`
	Blinks      int       `json:"blinks"`
	Verified    bool      `json:"verified"`
	VerifiedAt  time.Time `json:"verified_at"`
	SnapshotKey string    `json:"snapshot_key,omitempty"`
}

type EyeState uint8

const (
	EyeOpen   EyeState = 0
	EyeClosed EyeState = 1
)

var EyeStateMap = map[EyeState]string{
	EyeOpen:   "EYE_OPEN",
	EyeClosed: "EYE_CLOSED",
}

func (s EyeState) String() string {
	return EyeStateMap[s]
}

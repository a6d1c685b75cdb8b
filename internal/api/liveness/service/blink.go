package livenessService

import (
	"LivenessGolang/internal/entity"
	"math"
)

type BlinkConfig struct {
	Threshold      float64
	RequiredBlinks int
	// MinClosedFrames is how many consecutive sub-threshold samples are needed
	// before the eye counts as closed. 1 registers a closure on a single dip.
	MinClosedFrames int
}

func DefaultBlinkConfig() BlinkConfig {
	return BlinkConfig{
		Threshold:       0.25,
		RequiredBlinks:  2,
		MinClosedFrames: 1,
	}
}

// BlinkStateMachine turns a stream of averaged EAR samples into blink events.
// A blink is counted on the closed to open edge. Once verified the machine is
// frozen.
type BlinkStateMachine struct {
	cfg        BlinkConfig
	state      entity.EyeState
	blinkCount int
	closedRun  int
	verified   bool
}

func NewBlinkStateMachine(cfg BlinkConfig) *BlinkStateMachine {
	if cfg.MinClosedFrames < 1 {
		cfg.MinClosedFrames = 1
	}
	if cfg.RequiredBlinks < 1 {
		cfg.RequiredBlinks = 1
	}
	return &BlinkStateMachine{
		cfg:   cfg,
		state: entity.EyeOpen,
	}
}

// Observe applies one sample and reports whether it triggered verification.
func (m *BlinkStateMachine) Observe(ear float64) bool {
	if m.verified || math.IsNaN(ear) {
		return false
	}

	if ear < m.cfg.Threshold {
		m.closedRun++
		if m.closedRun >= m.cfg.MinClosedFrames {
			m.state = entity.EyeClosed
		}
	} else {
		if m.state == entity.EyeClosed {
			m.blinkCount++
		}
		m.state = entity.EyeOpen
		m.closedRun = 0
	}

	if m.blinkCount >= m.cfg.RequiredBlinks {
		m.verified = true
		return true
	}
	return false
}

func (m *BlinkStateMachine) BlinkCount() int {
	return m.blinkCount
}

func (m *BlinkStateMachine) State() entity.EyeState {
	return m.state
}

func (m *BlinkStateMachine) Verified() bool {
	return m.verified
}

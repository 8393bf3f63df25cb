package analysis

import (
	"fmt"
	"time"
)

// Event is a discrete analysis result attached to the snapshot that caused it.
type Event interface {
	Kind() string
	At() time.Time
	String() string
}

const (
	KindMovementWarning   = "movement_warning"
	KindRelaxationChanged = "relaxation_changed"
)

// MovementWarning is emitted when smoothed head motion crosses a threshold.
type MovementWarning struct {
	SmoothedAccel float64   `json:"smoothedAccel"`
	SmoothedGyro  float64   `json:"smoothedGyro"`
	Time          time.Time `json:"time"`
}

func (e MovementWarning) Kind() string  { return KindMovementWarning }
func (e MovementWarning) At() time.Time { return e.Time }

func (e MovementWarning) String() string {
	return fmt.Sprintf("Excessive head movement detected (Acc: %.2f, Gyro: %.2f)", e.SmoothedAccel, e.SmoothedGyro)
}

// RelaxationChanged is emitted when the relaxed/active classification flips,
// and once for the first classification of a session.
type RelaxationChanged struct {
	Score     float64   `json:"score"`
	IsRelaxed bool      `json:"isRelaxed"`
	Time      time.Time `json:"time"`
}

func (e RelaxationChanged) Kind() string  { return KindRelaxationChanged }
func (e RelaxationChanged) At() time.Time { return e.Time }

func (e RelaxationChanged) String() string {
	state := "active"
	if e.IsRelaxed {
		state = "relaxed"
	}
	return fmt.Sprintf("Relaxation state: %s (score %.2f)", state, e.Score)
}

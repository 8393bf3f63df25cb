package analysis

import (
	"time"

	"github.com/relabs-tech/brainwave_das/internal/device"
)

// Config groups the analyzer tunables.
type Config struct {
	Motion           MotionConfig
	RelaxedThreshold float64
}

// DefaultConfig returns the stock analyzer tunables.
func DefaultConfig() Config {
	return Config{
		Motion:           DefaultMotionConfig(),
		RelaxedThreshold: DefaultRelaxedThreshold,
	}
}

// Analyzer runs movement detection and relaxation scoring over the snapshot
// stream. It owns its rolling state and is not safe for concurrent use.
type Analyzer struct {
	motion     *MotionDetector
	relaxation *RelaxationClassifier
	now        func() time.Time
}

// New builds an analyzer. A nil clock defaults to time.Now.
func New(cfg Config, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{
		motion:     NewMotionDetector(cfg.Motion),
		relaxation: NewRelaxationClassifier(cfg.RelaxedThreshold),
		now:        now,
	}
}

// Observe processes one snapshot update and returns the events it raised,
// movement first.
func (a *Analyzer) Observe(s device.Snapshot, c device.Change) []Event {
	now := a.now()

	var events []Event
	if w, ok := a.motion.Observe(s, c, now); ok {
		events = append(events, w)
	}
	if r, ok := a.relaxation.Observe(s, now); ok {
		events = append(events, r)
	}
	return events
}

// Smoothed exposes the current smoothed motion magnitudes.
func (a *Analyzer) Smoothed() (accel, gyro float64) {
	return a.motion.Smoothed()
}

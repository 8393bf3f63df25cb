package analysis

import (
	"math"
	"time"

	"github.com/relabs-tech/brainwave_das/internal/device"
)

// Band weights of the relaxation score. Alpha and theta rise with
// relaxation; beta and gamma rise with mental activity.
const (
	WeightAlpha = 0.4
	WeightTheta = 0.3
	WeightBeta  = -0.2
	WeightGamma = -0.1

	DefaultRelaxedThreshold = 0.6
)

// RelaxationScore combines the band powers of s into a score in [0, 1].
func RelaxationScore(s device.Snapshot) float64 {
	score := s.Alpha*WeightAlpha +
		s.Theta*WeightTheta +
		(1-s.Beta)*WeightBeta +
		(1-s.Gamma)*WeightGamma
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RelaxationClassifier reports relaxed/active transitions while the band is
// on the forehead.
type RelaxationClassifier struct {
	threshold float64

	initialized bool
	relaxed     bool
}

func NewRelaxationClassifier(threshold float64) *RelaxationClassifier {
	return &RelaxationClassifier{threshold: threshold}
}

// Observe classifies s. An event is returned for the first classification
// and for every later flip; snapshots without contact are not classified.
func (r *RelaxationClassifier) Observe(s device.Snapshot, now time.Time) (RelaxationChanged, bool) {
	if !s.ContactActive {
		return RelaxationChanged{}, false
	}

	score := RelaxationScore(s)
	relaxed := score > r.threshold
	if r.initialized && relaxed == r.relaxed {
		return RelaxationChanged{}, false
	}

	r.initialized = true
	r.relaxed = relaxed
	return RelaxationChanged{Score: score, IsRelaxed: relaxed, Time: now}, true
}

// State returns the last emitted classification and whether one exists.
func (r *RelaxationClassifier) State() (relaxed, initialized bool) {
	return r.relaxed, r.initialized
}

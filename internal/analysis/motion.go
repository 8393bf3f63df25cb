package analysis

import (
	"time"

	"github.com/relabs-tech/brainwave_das/internal/device"
)

// Motion detection defaults.
const (
	DefaultAccelThreshold   = 1.8
	DefaultGyroThreshold    = 20.0
	DefaultMovementCooldown = 2000 * time.Millisecond
	DefaultSmoothingWindow  = 5
)

// MotionConfig tunes the movement detector.
type MotionConfig struct {
	AccelThreshold float64
	GyroThreshold  float64
	Cooldown       time.Duration
	Window         int
}

// DefaultMotionConfig returns the stock thresholds.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		AccelThreshold: DefaultAccelThreshold,
		GyroThreshold:  DefaultGyroThreshold,
		Cooldown:       DefaultMovementCooldown,
		Window:         DefaultSmoothingWindow,
	}
}

// MotionDetector smooths accelerometer and gyroscope magnitudes and raises a
// rate-limited warning when either smoothed value exceeds its threshold.
type MotionDetector struct {
	cfg MotionConfig

	accel *Window
	gyro  *Window

	warned        bool
	lastWarningAt time.Time
}

func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	return &MotionDetector{
		cfg:   cfg,
		accel: NewWindow(cfg.Window),
		gyro:  NewWindow(cfg.Window),
	}
}

// Observe feeds one snapshot update. Only updates that wrote the
// accelerometer or the gyroscope are taken into account.
func (m *MotionDetector) Observe(s device.Snapshot, c device.Change, now time.Time) (MovementWarning, bool) {
	if !c.Any(device.FieldAccel | device.FieldGyro) {
		return MovementWarning{}, false
	}
	if c.Any(device.FieldAccel) {
		m.accel.Push(s.Accel.Magnitude())
	}
	if c.Any(device.FieldGyro) {
		m.gyro.Push(s.Gyro.Magnitude())
	}

	acc, gyr := m.accel.Mean(), m.gyro.Mean()
	if acc <= m.cfg.AccelThreshold && gyr <= m.cfg.GyroThreshold {
		return MovementWarning{}, false
	}
	if m.warned && now.Sub(m.lastWarningAt) < m.cfg.Cooldown {
		return MovementWarning{}, false
	}

	m.warned = true
	m.lastWarningAt = now
	return MovementWarning{SmoothedAccel: acc, SmoothedGyro: gyr, Time: now}, true
}

// Smoothed returns the current smoothed accelerometer and gyroscope magnitudes.
func (m *MotionDetector) Smoothed() (accel, gyro float64) {
	return m.accel.Mean(), m.gyro.Mean()
}

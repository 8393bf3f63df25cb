// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package headband

import (
	"math"
	"time"

	"github.com/relabs-tech/brainwave_das/internal/device"
)

const (
	// contact drops for the last 2s of every 30s cycle
	contactCycle   = 30 * time.Second
	contactDropout = 2 * time.Second

	// a 1s head shake every 15s
	shakeCycle    = 15 * time.Second
	shakeDuration = time.Second
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a source with smoothly drifting band powers, a
// resting accelerometer, periodic head shakes and contact dropouts.
func NewMockSource() Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

func (m *mockSource) Next() (Frame, error) {
	d := m.now().Sub(m.start)
	elapsed := d.Seconds()

	f := Frame{
		Contact: d%contactCycle < contactCycle-contactDropout,
		Accel:   device.Vector3{X: 0.02 * math.Sin(elapsed*3), Y: 0.02 * math.Cos(elapsed*2), Z: 0.98},
		Gyro:    device.Vector3{X: 2 * math.Sin(elapsed), Y: 1.5 * math.Cos(elapsed*0.7), Z: 0.5},

		// relaxation drifts in and out over a minute
		Alpha: 0.6 + 0.3*math.Sin(elapsed*2*math.Pi/60),
		Theta: 0.5 + 0.2*math.Sin(elapsed*2*math.Pi/45),
		Beta:  0.3 + 0.2*math.Cos(elapsed*2*math.Pi/60),
		Delta: 0.4 + 0.1*math.Sin(elapsed*0.5),
		Gamma: 0.15 + 0.05*math.Cos(elapsed*1.3),
	}

	if d%shakeCycle < shakeDuration {
		f.Accel = device.Vector3{X: 1.6 * math.Sin(elapsed*20), Y: 1.4, Z: 1.2}
		f.Gyro = device.Vector3{X: 45 * math.Sin(elapsed*15), Y: 30, Z: 10}
	}
	return f, nil
}

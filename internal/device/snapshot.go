// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"math"
	"time"
)

// Vector3 is one 3-axis sensor reading (accelerometer in g, gyroscope in °/s).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm of the vector.
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Snapshot is the current state of the headband at one point in time.
//
// It only holds value fields, so assigning a Snapshot produces an
// independent copy that sinks may keep without synchronisation.
type Snapshot struct {
	SessionID     string    `json:"sessionId"`
	Timestamp     time.Time `json:"timestamp"`
	ContactActive bool      `json:"bandOn"`

	Accel Vector3 `json:"acc"`
	Gyro  Vector3 `json:"gyro"`

	// band powers
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Gamma float64 `json:"gamma"`
}

// FieldUpdate is one decoded addressed message: an OSC address and its
// numeric arguments in order.
type FieldUpdate struct {
	Path   string
	Values []float64
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"math"
	"strings"
)

// Valid range for any raw sensor or band value. Generous enough for a
// ±2000°/s gyro range, which is the widest unit the headband emits.
const (
	ValueMin = -2000.0
	ValueMax = 2000.0
)

// Address tags matched against the OSC path.
const (
	TagContact = "touching_forehead"
	TagGyro    = "gyro"
	TagAccel   = "acc"
	TagAlpha   = "alpha"
	TagBeta    = "beta"
	TagDelta   = "delta"
	TagTheta   = "theta"
	TagGamma   = "gamma"
)

// Field is a bit set of snapshot fields touched by an update.
type Field uint8

const (
	FieldContact Field = 1 << iota
	FieldGyro
	FieldAccel
	FieldAlpha
	FieldBeta
	FieldDelta
	FieldTheta
	FieldGamma
)

// FieldBands covers every band power field.
const FieldBands = FieldAlpha | FieldBeta | FieldDelta | FieldTheta | FieldGamma

// Change describes what Apply did to the snapshot.
type Change struct {
	Fields Field

	// ContactChanged is set on a false→true or true→false edge only.
	ContactChanged bool
	Contact        bool
}

// Changed reports whether any known field was written.
func (c Change) Changed() bool { return c.Fields != 0 }

// Has reports whether every field in f was written.
func (c Change) Has(f Field) bool { return c.Fields&f == f }

// Any reports whether at least one field in f was written.
func (c Change) Any(f Field) bool { return c.Fields&f != 0 }

// Pcap clamps v into [ValueMin, ValueMax]. Infinities map to the boundary of
// the same sign and NaN maps to ValueMin.
func Pcap(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return ValueMin
	case v < ValueMin:
		return ValueMin
	case v > ValueMax:
		return ValueMax
	}
	return v
}

// Apply writes u into s and reports which fields changed. Every tag found in
// the path is applied; paths without a known tag leave s untouched.
func Apply(s *Snapshot, u FieldUpdate) Change {
	var c Change

	if strings.Contains(u.Path, TagContact) && len(u.Values) >= 1 {
		on := u.Values[0] == 1.0
		c.Fields |= FieldContact
		c.ContactChanged = on != s.ContactActive
		c.Contact = on
		s.ContactActive = on
	}
	if strings.Contains(u.Path, TagGyro) && len(u.Values) >= 3 {
		s.Gyro = vector(u.Values)
		c.Fields |= FieldGyro
	}
	if strings.Contains(u.Path, TagAccel) && len(u.Values) >= 3 {
		s.Accel = vector(u.Values)
		c.Fields |= FieldAccel
	}

	bands := []struct {
		tag   string
		field Field
		dst   *float64
	}{
		{TagAlpha, FieldAlpha, &s.Alpha},
		{TagBeta, FieldBeta, &s.Beta},
		{TagDelta, FieldDelta, &s.Delta},
		{TagTheta, FieldTheta, &s.Theta},
		{TagGamma, FieldGamma, &s.Gamma},
	}
	for _, b := range bands {
		if strings.Contains(u.Path, b.tag) && len(u.Values) >= 1 {
			*b.dst = Pcap(u.Values[0])
			c.Fields |= b.field
		}
	}

	return c
}

func vector(v []float64) Vector3 {
	return Vector3{X: Pcap(v[0]), Y: Pcap(v[1]), Z: Pcap(v[2])}
}

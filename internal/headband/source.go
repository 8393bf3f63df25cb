// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package headband models the readings a headband sends in one cycle and
// their OSC addresses.
package headband

import (
	"fmt"

	gosc "github.com/hypebeast/go-osc/osc"

	"github.com/relabs-tech/brainwave_das/internal/device"
	"github.com/relabs-tech/brainwave_das/internal/osc"
)

// OSC addresses used by the headband.
const (
	AddrContact = "/muse/elements/touching_forehead"
	AddrAccel   = "/muse/acc"
	AddrGyro    = "/muse/gyro"
	AddrAlpha   = "/muse/elements/alpha_absolute"
	AddrBeta    = "/muse/elements/beta_absolute"
	AddrDelta   = "/muse/elements/delta_absolute"
	AddrTheta   = "/muse/elements/theta_absolute"
	AddrGamma   = "/muse/elements/gamma_absolute"
)

// Frame is one cycle of headband output.
type Frame struct {
	Contact bool
	Accel   device.Vector3
	Gyro    device.Vector3

	Alpha, Beta, Delta, Theta, Gamma float64
}

// Source produces frames.
type Source interface {
	Next() (Frame, error)
}

// packets returns the frame as one OSC message per address, contact first.
func (f Frame) packets() []*gosc.Message {
	contact := float32(0)
	if f.Contact {
		contact = 1
	}
	return []*gosc.Message{
		osc.NewMessage(AddrContact, contact),
		osc.NewMessage(AddrAccel, float32(f.Accel.X), float32(f.Accel.Y), float32(f.Accel.Z)),
		osc.NewMessage(AddrGyro, float32(f.Gyro.X), float32(f.Gyro.Y), float32(f.Gyro.Z)),
		osc.NewMessage(AddrAlpha, float32(f.Alpha)),
		osc.NewMessage(AddrBeta, float32(f.Beta)),
		osc.NewMessage(AddrDelta, float32(f.Delta)),
		osc.NewMessage(AddrTheta, float32(f.Theta)),
		osc.NewMessage(AddrGamma, float32(f.Gamma)),
	}
}

// Messages encodes the frame as one datagram per address, contact first.
func (f Frame) Messages() ([][]byte, error) {
	msgs := f.packets()
	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Address, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Bundle encodes the whole frame as a single OSC bundle.
func (f Frame) Bundle() ([]byte, error) {
	msgs := f.packets()
	packets := make([]gosc.Packet, len(msgs))
	for i, m := range msgs {
		packets[i] = m
	}
	return osc.EncodeBundle(packets...)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink delivers every updated snapshot, together with the analysis
// events it produced, to the configured outputs.
package sink

import (
	"context"
	"errors"

	"github.com/relabs-tech/brainwave_das/internal/analysis"
	"github.com/relabs-tech/brainwave_das/internal/device"
)

var (
	// ErrQueueFull is returned by an async sink when its queue has no room.
	ErrQueueFull = errors.New("sink queue full")
	// ErrClosed is returned when consuming after Close.
	ErrClosed = errors.New("sink closed")
	// ErrRelayStatus marks a relay response outside the 2xx range.
	ErrRelayStatus = errors.New("relay returned non-2xx status")
)

// View is what a sink receives for one applied update.
type View struct {
	Snapshot device.Snapshot
	Events   []analysis.Event
}

// Class orders sinks inside the dispatcher.
type Class int

const (
	ClassDurable Class = iota
	ClassDisplay
	ClassRelay
)

func (c Class) String() string {
	switch c {
	case ClassDurable:
		return "durable"
	case ClassDisplay:
		return "display"
	case ClassRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// Sink is one output of the pipeline.
type Sink interface {
	Name() string
	Class() Class
	Consume(ctx context.Context, v View) error
	Close() error
}

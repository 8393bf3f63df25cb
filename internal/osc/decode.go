// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package osc turns the OSC 1.0 datagrams streamed by the headband into
// device field updates, on top of go-osc.
//
// Only numeric and boolean arguments are kept. Messages carrying string,
// blob or timetag arguments are skipped rather than rejected.
package osc

import (
	"errors"
	"fmt"

	gosc "github.com/hypebeast/go-osc/osc"

	"github.com/relabs-tech/brainwave_das/internal/device"
)

// ErrMalformed is wrapped by every framing or type-tag error.
var ErrMalformed = errors.New("osc: malformed packet")

// Decode parses one datagram into field updates. Within a bundle the
// messages are returned before the nested bundles, depth first.
// On error no updates are returned.
func Decode(b []byte) (updates []device.FieldUpdate, err error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty packet", ErrMalformed)
	}

	// go-osc panics on some corrupt blob lengths
	defer func() {
		if r := recover(); r != nil {
			updates, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	pkt, err := gosc.ParsePacket(string(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch p := pkt.(type) {
	case *gosc.Message:
		if u, ok := fieldUpdate(p); ok {
			updates = append(updates, u)
		}
	case *gosc.Bundle:
		walkBundle(p, &updates)
	default:
		return nil, fmt.Errorf("%w: unrecognised packet", ErrMalformed)
	}
	return updates, nil
}

func walkBundle(b *gosc.Bundle, out *[]device.FieldUpdate) {
	for _, m := range b.Messages {
		if u, ok := fieldUpdate(m); ok {
			*out = append(*out, u)
		}
	}
	for _, nested := range b.Bundles {
		walkBundle(nested, out)
	}
}

// fieldUpdate returns ok=false for messages that carry non-numeric
// arguments.
func fieldUpdate(m *gosc.Message) (device.FieldUpdate, bool) {
	if m == nil {
		return device.FieldUpdate{}, false
	}
	u := device.FieldUpdate{Path: m.Address, Values: make([]float64, 0, len(m.Arguments))}

	for _, arg := range m.Arguments {
		switch v := arg.(type) {
		case float32:
			u.Values = append(u.Values, float64(v))
		case float64:
			u.Values = append(u.Values, v)
		case int32:
			u.Values = append(u.Values, float64(v))
		case int64:
			u.Values = append(u.Values, float64(v))
		case bool:
			if v {
				u.Values = append(u.Values, 1)
			} else {
				u.Values = append(u.Values, 0)
			}
		case nil:
		default:
			return device.FieldUpdate{}, false
		}
	}
	return u, true
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package analysis

// Window is a fixed-capacity FIFO of float64 used as a moving average.
// Once full, each Push evicts the oldest value.
type Window struct {
	buf   []float64
	start int
	n     int
	sum   float64
}

// NewWindow returns an empty window. Capacities below 1 are raised to 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when the window is full.
func (w *Window) Push(v float64) {
	if w.n == len(w.buf) {
		w.start = (w.start + 1) % len(w.buf)
		w.n--
	}
	w.buf[(w.start+w.n)%len(w.buf)] = v
	w.n++
	w.recompute()
}

// recompute rebuilds the sum from the stored values instead of adding and
// subtracting, so rounding error cannot accumulate over a long session.
func (w *Window) recompute() {
	w.sum = 0
	for i := 0; i < w.n; i++ {
		w.sum += w.buf[(w.start+i)%len(w.buf)]
	}
}

// Len is the number of values currently held.
func (w *Window) Len() int { return w.n }

// Cap is the configured capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Mean is the arithmetic mean of the values held, dividing by Len and not by
// Cap. An empty window has mean 0.
func (w *Window) Mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}

// Values returns the held values oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.n)
	for i := range out {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

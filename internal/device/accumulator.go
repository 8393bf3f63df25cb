package device

import "time"

// Accumulator owns the single live Snapshot of a running service.
// It is not safe for concurrent use; the acquisition loop is its only writer.
type Accumulator struct {
	snap Snapshot
	now  func() time.Time
}

// NewAccumulator returns an accumulator whose snapshot starts zeroed.
// A nil clock defaults to time.Now.
func NewAccumulator(sessionID string, now func() time.Time) *Accumulator {
	if now == nil {
		now = time.Now
	}
	return &Accumulator{
		snap: Snapshot{SessionID: sessionID, Timestamp: now()},
		now:  now,
	}
}

// ApplyUpdate mutates the snapshot with u, refreshes its timestamp and
// returns a copy of the result.
func (a *Accumulator) ApplyUpdate(u FieldUpdate) (Snapshot, Change) {
	c := Apply(&a.snap, u)
	a.snap.Timestamp = a.now()
	return a.snap, c
}

// Current returns a copy of the snapshot.
func (a *Accumulator) Current() Snapshot {
	return a.snap
}

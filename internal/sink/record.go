package sink

import (
	"time"

	"github.com/relabs-tech/brainwave_das/internal/analysis"
	"github.com/relabs-tech/brainwave_das/internal/device"
)

// Record is the relay payload of one snapshot. Its JSON shape is the one the
// ingestion side stores: sessionId, timestamp, bandOn, acc, gyro and the
// five band powers.
type Record = device.Snapshot

// EventRecord is the relay payload of one analysis event.
type EventRecord struct {
	SessionID string         `json:"sessionId"`
	Kind      string         `json:"kind"`
	Time      time.Time      `json:"time"`
	Message   string         `json:"message"`
	Detail    analysis.Event `json:"detail"`
}

// EventRecords converts the events of v for relaying.
func EventRecords(v View) []EventRecord {
	if len(v.Events) == 0 {
		return nil
	}
	out := make([]EventRecord, 0, len(v.Events))
	for _, e := range v.Events {
		out = append(out, EventRecord{
			SessionID: v.Snapshot.SessionID,
			Kind:      e.Kind(),
			Time:      e.At(),
			Message:   e.String(),
			Detail:    e,
		})
	}
	return out
}

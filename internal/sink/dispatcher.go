package sink

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/metrics"
)

// Report collects the per-sink failures of one dispatch.
type Report struct {
	Errors map[string]error
}

// OK reports whether every sink accepted the view.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Dispatcher fans a view out to its sinks, durable sinks first, then
// displays, then relays. A failing sink never stops the others.
type Dispatcher struct {
	sinks   []Sink
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewDispatcher orders sinks by class, keeping the given order within a class.
func NewDispatcher(log *zap.Logger, m *metrics.Metrics, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	ordered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Class() < ordered[j].Class()
	})
	return &Dispatcher{sinks: ordered, log: log, metrics: m}
}

// Names returns the sink names in dispatch order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch hands v to every sink in order.
func (d *Dispatcher) Dispatch(ctx context.Context, v View) Report {
	var report Report
	for _, s := range d.sinks {
		err := d.consume(ctx, s, v)
		if err == nil {
			continue
		}
		if report.Errors == nil {
			report.Errors = make(map[string]error)
		}
		report.Errors[s.Name()] = err

		if errors.Is(err, ErrQueueFull) {
			d.metrics.SinkDropped(s.Name())
			d.log.Debug("sink queue full, snapshot dropped", zap.String("sink", s.Name()))
			continue
		}
		d.metrics.SinkError(s.Name())
		d.log.Warn("sink failed",
			zap.String("sink", s.Name()),
			zap.String("class", s.Class().String()),
			zap.Error(err),
		)
	}
	return report
}

func (d *Dispatcher) consume(ctx context.Context, s Sink, v View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Consume(ctx, v)
}

// Close closes every sink in dispatch order and joins their errors.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

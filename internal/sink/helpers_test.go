package sink

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-tech/brainwave_das/internal/device"
)

type fakeSink struct {
	name  string
	class Class

	mu       sync.Mutex
	views    []View
	err      error
	panicMsg string
	closed   int
	closeErr error
	order    *[]string
	block    chan struct{}
}

func (f *fakeSink) Name() string { return f.name }
func (f *fakeSink) Class() Class { return f.class }

func (f *fakeSink) Consume(ctx context.Context, v View) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.views = append(f.views, v)
	return f.err
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	if f.order != nil {
		*f.order = append(*f.order, "close:"+f.name)
	}
	return f.closeErr
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.views)
}

func testSnapshot() device.Snapshot {
	return device.Snapshot{
		SessionID:     "session-1",
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 250_000_000, time.UTC),
		ContactActive: true,
		Accel:         device.Vector3{X: 0.1, Y: -0.2, Z: 0.98},
		Gyro:          device.Vector3{X: 1.5, Y: 2.5, Z: -3.5},
		Alpha:         0.8,
		Beta:          0.2,
		Delta:         0.3,
		Theta:         0.6,
		Gamma:         0.1,
	}
}

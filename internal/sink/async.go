package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/metrics"
)

const defaultDrainTimeout = 2 * time.Second

// AsyncSink decouples a slow sink from the receive loop with a bounded
// queue served by a fixed set of workers.
type AsyncSink struct {
	inner   Sink
	queue   chan View
	log     *zap.Logger
	metrics *metrics.Metrics

	drainTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Async wraps inner. queueSize and workers below 1 are raised to 1.
func Async(inner Sink, queueSize, workers int, log *zap.Logger, m *metrics.Metrics) *AsyncSink {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &AsyncSink{
		inner:        inner,
		queue:        make(chan View, queueSize),
		log:          log.With(zap.String("sink", inner.Name())),
		metrics:      m,
		drainTimeout: defaultDrainTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

// SetDrainTimeout bounds how long Close waits for queued views.
func (a *AsyncSink) SetDrainTimeout(d time.Duration) { a.drainTimeout = d }

func (a *AsyncSink) Name() string { return a.inner.Name() }
func (a *AsyncSink) Class() Class { return a.inner.Class() }

// Consume enqueues v without blocking.
func (a *AsyncSink) Consume(_ context.Context, v View) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- v:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *AsyncSink) worker() {
	defer a.wg.Done()
	for v := range a.queue {
		if a.ctx.Err() != nil {
			continue
		}
		if err := a.deliver(v); err != nil {
			a.metrics.SinkError(a.inner.Name())
			a.log.Warn("async delivery failed", zap.Error(err))
		}
	}
}

func (a *AsyncSink) deliver(v View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.inner.Consume(a.ctx, v)
}

// Close stops intake, waits for the queue to drain up to the drain timeout,
// then closes the inner sink. Views still queued after the timeout are lost.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(a.drainTimeout):
		a.log.Warn("drain timeout, abandoning queued snapshots", zap.Int("pending", len(a.queue)))
		a.cancel()
		<-done
	}
	a.cancel()
	return a.inner.Close()
}

package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAsync_DeliversInBackground(t *testing.T) {
	inner := &fakeSink{name: "relay", class: ClassRelay}
	a := Async(inner, 8, 2, nil, nil)

	assert.Equal(t, "relay", a.Name())
	assert.Equal(t, ClassRelay, a.Class())

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Consume(context.Background(), View{Snapshot: testSnapshot()}))
	}
	require.NoError(t, a.Close())

	assert.Equal(t, 5, inner.count())
	assert.Equal(t, 1, inner.closed)
}

func TestAsync_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := &fakeSink{name: "relay", class: ClassRelay, block: block}
	a := Async(inner, 1, 1, nil, nil)

	// the worker takes the first view and blocks on it, the second fills the queue
	require.NoError(t, a.Consume(context.Background(), View{}))
	require.Eventually(t, func() bool { return len(a.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Consume(context.Background(), View{}))

	start := time.Now()
	err := a.Consume(context.Background(), View{})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	close(block)
	require.NoError(t, a.Close())
	assert.Equal(t, 2, inner.count())
}

func TestAsync_ConsumeAfterClose(t *testing.T) {
	a := Async(&fakeSink{name: "relay", class: ClassRelay}, 1, 1, nil, nil)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Consume(context.Background(), View{}), ErrClosed)
}

func TestAsync_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	inner := &fakeSink{name: "relay", class: ClassRelay, err: errors.New("connection refused")}
	a := Async(inner, 4, 1, zap.New(core), nil)

	require.NoError(t, a.Consume(context.Background(), View{}))
	require.NoError(t, a.Close())

	entries := logs.FilterMessage("async delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "relay", entries[0].ContextMap()["sink"])
}

func TestAsync_DrainTimeoutAbandonsQueue(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	inner := &fakeSink{name: "relay", class: ClassRelay, block: block}
	a := Async(inner, 4, 1, nil, nil)
	a.SetDrainTimeout(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Consume(context.Background(), View{}))
	}

	start := time.Now()
	require.NoError(t, a.Close())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, inner.count())
	assert.Equal(t, 1, inner.closed)
}

package acquisition

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/relabs-tech/brainwave_das/internal/analysis"
	"github.com/relabs-tech/brainwave_das/internal/device"
	"github.com/relabs-tech/brainwave_das/internal/metrics"
	"github.com/relabs-tech/brainwave_das/internal/osc"
	"github.com/relabs-tech/brainwave_das/internal/sink"
)

type recordingSink struct {
	mu     sync.Mutex
	views  []sink.View
	closed bool
}

func (r *recordingSink) Name() string      { return "recorder" }
func (r *recordingSink) Class() sink.Class { return sink.ClassDurable }

func (r *recordingSink) Consume(_ context.Context, v sink.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) snapshot() []sink.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sink.View(nil), r.views...)
}

func (r *recordingSink) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type fixture struct {
	svc  *Service
	rec  *recordingSink
	logs *observer.ObservedLogs
}

func newFixture(t *testing.T, port int) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	rec := &recordingSink{}
	m := metrics.New()

	svc := New(Deps{
		BindAddr:    "127.0.0.1",
		Port:        port,
		Accumulator: device.NewAccumulator("test-session", nil),
		Analyzer:    analysis.New(analysis.DefaultConfig(), nil),
		Dispatcher:  sink.NewDispatcher(log, m, rec),
		Logger:      log,
		Metrics:     m,
	})
	return &fixture{svc: svc, rec: rec, logs: logs}
}

func (f *fixture) send(t *testing.T, datagrams ...[]byte) {
	t.Helper()
	conn, err := net.Dial("udp", f.svc.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	for _, d := range datagrams {
		_, err := conn.Write(d)
		require.NoError(t, err)
	}
}

func (f *fixture) waitViews(t *testing.T, n int) []sink.View {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.rec.snapshot()) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return f.rec.snapshot()
}

func TestService_Lifecycle(t *testing.T) {
	f := newFixture(t, 0)
	assert.Equal(t, StateStopped, f.svc.State())
	assert.Nil(t, f.svc.Addr())

	require.NoError(t, f.svc.Start(context.Background()))
	assert.Equal(t, StateListening, f.svc.State())
	require.NotNil(t, f.svc.Addr())

	err := f.svc.Start(context.Background())
	assert.ErrorIs(t, err, ErrState)

	f.send(t,
		osc.EncodeMessage("/muse/elements/touching_forehead", 1),
		osc.EncodeMessage("/muse/acc", 0.1, 0.2, 0.9),
	)
	views := f.waitViews(t, 2)

	assert.Equal(t, "test-session", views[0].Snapshot.SessionID)
	assert.True(t, views[0].Snapshot.ContactActive)
	assert.InDelta(t, 0.9, views[1].Snapshot.Accel.Z, 1e-6)
	assert.True(t, views[1].Snapshot.ContactActive)

	assert.Equal(t, 1, f.logs.FilterMessage("Band state changed from OFF to ON").Len())
	assert.Equal(t, 1, f.logs.FilterMessage("server listening").Len())

	require.NoError(t, f.svc.Stop(context.Background()))
	assert.Equal(t, StateStopped, f.svc.State())
	assert.True(t, f.rec.isClosed())
	assert.NoError(t, f.svc.Wait())
	assert.NoError(t, f.svc.Stop(context.Background()))

	assert.ErrorIs(t, f.svc.Start(context.Background()), ErrState)
}

func TestService_ContactLossIsWarned(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop(context.Background())

	f.send(t,
		osc.EncodeMessage("/muse/elements/touching_forehead", 1),
		osc.EncodeMessage("/muse/elements/touching_forehead", 1),
		osc.EncodeMessage("/muse/elements/touching_forehead", 0),
	)
	f.waitViews(t, 3)

	off := f.logs.FilterMessage("Band state changed from ON to OFF").All()
	require.Len(t, off, 1)
	assert.Equal(t, zapcore.WarnLevel, off[0].Level)
	assert.Equal(t, 1, f.logs.FilterMessage("Band state changed from OFF to ON").Len())
}

func TestService_BindFailure(t *testing.T) {
	taken, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer taken.Close()

	f := newFixture(t, taken.LocalAddr().(*net.UDPAddr).Port)
	err = f.svc.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBind)
	assert.Equal(t, StateFaulted, f.svc.State())

	require.NoError(t, f.svc.Stop(context.Background()))
	assert.Equal(t, StateFaulted, f.svc.State())
	assert.True(t, f.rec.isClosed())
}

func TestService_DropsMalformedDatagram(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop(context.Background())

	f.send(t,
		[]byte("not osc"),
		osc.EncodeMessage("/muse/elements/alpha_absolute", 0.5),
	)
	views := f.waitViews(t, 1)

	assert.InDelta(t, 0.5, views[0].Snapshot.Alpha, 1e-6)
	assert.Equal(t, 1, f.logs.FilterMessage("dropping malformed datagram").Len())
	assert.Equal(t, StateListening, f.svc.State())

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, f.rec.snapshot(), 1)
}

func TestService_BundleUpdatesInOrder(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop(context.Background())

	bundle, err := osc.EncodeBundle(
		osc.NewMessage("/muse/elements/alpha_absolute", 0.1),
		osc.NewMessage("/muse/elements/beta_absolute", 0.2),
		osc.NewMessage("/muse/elements/theta_absolute", 0.3),
	)
	require.NoError(t, err)
	f.send(t, bundle)
	views := f.waitViews(t, 3)

	assert.InDelta(t, 0.1, views[0].Snapshot.Alpha, 1e-6)
	assert.Zero(t, views[0].Snapshot.Beta)
	assert.InDelta(t, 0.2, views[1].Snapshot.Beta, 1e-6)
	assert.Zero(t, views[1].Snapshot.Theta)
	assert.InDelta(t, 0.3, views[2].Snapshot.Theta, 1e-6)
}

func TestService_MovementWarningReachesSinks(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.svc.Start(context.Background()))
	defer f.svc.Stop(context.Background())

	f.send(t, osc.EncodeMessage("/muse/acc", 3, 0, 0))
	views := f.waitViews(t, 1)

	require.Len(t, views[0].Events, 1)
	warning, ok := views[0].Events[0].(analysis.MovementWarning)
	require.True(t, ok)
	assert.InDelta(t, 3.0, warning.SmoothedAccel, 1e-6)

	warns := f.logs.FilterLevelExact(zapcore.WarnLevel).All()
	found := false
	for _, e := range warns {
		if strings.HasPrefix(e.Message, "Excessive head movement detected") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestService_FaultsWhenSocketClosedUnderneath(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, f.svc.Start(context.Background()))

	f.svc.mu.Lock()
	_ = f.svc.conn.Close()
	f.svc.mu.Unlock()

	err := f.svc.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFaulted)
	assert.Equal(t, StateFaulted, f.svc.State())

	require.NoError(t, f.svc.Stop(context.Background()))
	assert.True(t, f.rec.isClosed())
}

func TestService_ContextCancelEndsLoop(t *testing.T) {
	f := newFixture(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.svc.Start(ctx))

	cancel()
	assert.NoError(t, f.svc.Wait())
	require.NoError(t, f.svc.Stop(context.Background()))
	assert.Equal(t, StateStopped, f.svc.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "faulted", StateFaulted.String())
	assert.Equal(t, "unknown", State(42).String())
}

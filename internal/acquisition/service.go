// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquisition runs the UDP receive loop that turns headband
// datagrams into snapshots, analysis events and sink deliveries.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/analysis"
	"github.com/relabs-tech/brainwave_das/internal/device"
	"github.com/relabs-tech/brainwave_das/internal/metrics"
	"github.com/relabs-tech/brainwave_das/internal/osc"
	"github.com/relabs-tech/brainwave_das/internal/sink"
)

var (
	// ErrBind wraps failures to open the UDP socket.
	ErrBind = errors.New("bind udp socket")
	// ErrFaulted is returned by Wait when the receive loop died.
	ErrFaulted = errors.New("acquisition faulted")
	// ErrState is returned when an operation is not valid in the current state.
	ErrState = errors.New("invalid service state")
)

const (
	readTimeout              = 100 * time.Millisecond
	maxDatagramSize          = 65536
	maxConsecutiveReadErrors = 10
	defaultSampleLogInterval = 5 * time.Second
)

// Deps are the collaborators of the service.
type Deps struct {
	BindAddr          string
	Port              int
	SampleLogInterval time.Duration

	Accumulator *device.Accumulator
	Analyzer    *analysis.Analyzer
	Dispatcher  *sink.Dispatcher
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Service owns the socket and the single receive goroutine. The accumulator
// and analyzer are only touched from that goroutine.
type Service struct {
	deps Deps
	log  *zap.Logger

	state atomic.Int32

	mu       sync.Mutex
	conn     *net.UDPConn
	shutdown chan struct{}
	done     chan struct{}
	fault    error
	closed   bool
}

func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SampleLogInterval <= 0 {
		deps.SampleLogInterval = defaultSampleLogInterval
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = sink.NewDispatcher(deps.Logger, deps.Metrics)
	}
	if deps.Analyzer == nil {
		deps.Analyzer = analysis.New(analysis.DefaultConfig(), nil)
	}
	if deps.Accumulator == nil {
		deps.Accumulator = device.NewAccumulator("", nil)
	}
	return &Service{deps: deps, log: deps.Logger}
}

// State returns the current lifecycle state.
func (s *Service) State() State { return State(s.state.Load()) }

func (s *Service) setState(st State) {
	s.state.Store(int32(st))
	s.deps.Metrics.State(int(st))
}

// Addr is the bound socket address, nil unless listening.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Start binds the socket and launches the receive loop. ctx bounds the
// lifetime of the loop and is passed to every sink.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateStopped || s.closed {
		return fmt.Errorf("start while %s: %w", st, ErrState)
	}
	s.setState(StateStarting)

	addr := net.JoinHostPort(s.deps.BindAddr, strconv.Itoa(s.deps.Port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err == nil {
		s.conn, err = net.ListenUDP("udp", udpAddr)
	}
	if err != nil {
		s.fault = fmt.Errorf("%w %s: %v", ErrBind, addr, err)
		s.setState(StateFaulted)
		s.log.Error("Server error", zap.String("addr", addr), zap.Error(err))
		return s.fault
	}

	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	s.fault = nil
	s.setState(StateListening)
	s.log.Info("server listening", zap.String("addr", s.conn.LocalAddr().String()))

	go s.run(ctx, s.conn)
	return nil
}

// Wait blocks until the receive loop exits. It returns nil after an orderly
// stop and an ErrFaulted error otherwise.
func (s *Service) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Stop closes the socket, waits for the datagram in flight and closes the
// sinks. Stopping a faulted service only releases the sinks.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	st := s.State()
	switch st {
	case StateStopped:
		s.mu.Unlock()
		return nil
	case StateListening:
		s.setState(StateStopping)
		close(s.shutdown)
		_ = s.conn.Close()
	}
	done := s.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("stop: %w", ctx.Err())
		}
	}

	err := s.closeSinks()

	s.mu.Lock()
	s.conn = nil
	if s.State() == StateStopping {
		s.setState(StateStopped)
		s.log.Info("server stopped")
	}
	s.mu.Unlock()
	return err
}

func (s *Service) closeSinks() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.deps.Dispatcher.Close(); err != nil {
		s.log.Warn("closing sinks", zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) run(ctx context.Context, conn *net.UDPConn) {
	defer close(s.done)

	buf := make([]byte, maxDatagramSize)
	rate := newRateLogger(s.log, s.deps.SampleLogInterval)
	consecutive := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-s.shutdown:
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				s.faultWith(err)
				return
			}
			consecutive++
			s.deps.Metrics.ReadError()
			s.log.Warn("udp read failed", zap.Int("consecutive", consecutive), zap.Error(err))
			if consecutive > maxConsecutiveReadErrors {
				s.faultWith(fmt.Errorf("%d consecutive read errors: %w", consecutive, err))
				return
			}
			continue
		}
		consecutive = 0

		s.deps.Metrics.DatagramReceived(n)
		rate.tick(time.Now())
		s.handleDatagram(ctx, buf[:n])
	}
}

func (s *Service) faultWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fmt.Errorf("%w: %v", ErrFaulted, err)
	s.setState(StateFaulted)
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.log.Error("Server error", zap.Error(err))
}

// handleDatagram runs the whole pipeline for one datagram before the next
// read, so updates reach the sinks in arrival order.
func (s *Service) handleDatagram(ctx context.Context, data []byte) {
	updates, err := osc.Decode(data)
	if err != nil {
		s.deps.Metrics.DecodeError()
		s.log.Warn("dropping malformed datagram", zap.Int("bytes", len(data)), zap.Error(err))
		return
	}

	for _, u := range updates {
		snap, change := s.deps.Accumulator.ApplyUpdate(u)
		s.deps.Metrics.UpdateApplied()

		if change.ContactChanged {
			if change.Contact {
				s.log.Info("Band state changed from OFF to ON")
			} else {
				s.log.Warn("Band state changed from ON to OFF")
			}
		}

		events := s.deps.Analyzer.Observe(snap, change)
		for _, e := range events {
			s.deps.Metrics.Event(e.Kind())
			switch ev := e.(type) {
			case analysis.MovementWarning:
				s.log.Warn(ev.String(),
					zap.Float64("smoothed_accel", ev.SmoothedAccel),
					zap.Float64("smoothed_gyro", ev.SmoothedGyro))
			case analysis.RelaxationChanged:
				s.log.Info(ev.String(),
					zap.Float64("score", ev.Score),
					zap.Bool("relaxed", ev.IsRelaxed))
			}
		}

		s.deps.Dispatcher.Dispatch(ctx, sink.View{Snapshot: snap, Events: events})
	}
}

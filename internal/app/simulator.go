package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/headband"
)

// SimulatorOptions configure the mock headband.
type SimulatorOptions struct {
	Target   string        // host:port of the DAS
	Interval time.Duration // time between frames
	Bundle   bool          // send each frame as one OSC bundle
}

// RunSimulator sends frames from src to the target until ctx ends.
func RunSimulator(ctx context.Context, opts SimulatorOptions, src headband.Source, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}

	conn, err := net.Dial("udp", opts.Target)
	if err != nil {
		return fmt.Errorf("dial %s: %w", opts.Target, err)
	}
	defer conn.Close()
	log.Info("simulator sending", zap.String("target", opts.Target), zap.Duration("interval", opts.Interval), zap.Bool("bundle", opts.Bundle))

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("simulator stopped", zap.Int("frames", frames))
			return nil
		case <-ticker.C:
		}

		frame, err := src.Next()
		if err != nil {
			log.Warn("error from mock source", zap.Error(err))
			continue
		}

		var datagrams [][]byte
		if opts.Bundle {
			var b []byte
			b, err = frame.Bundle()
			datagrams = [][]byte{b}
		} else {
			datagrams, err = frame.Messages()
		}
		if err != nil {
			log.Warn("failed to encode frame", zap.Error(err))
			continue
		}
		for _, d := range datagrams {
			if _, err := conn.Write(d); err != nil {
				// nobody listening yet, keep going
				log.Debug("send failed", zap.Error(err))
			}
		}
		frames++
	}
}

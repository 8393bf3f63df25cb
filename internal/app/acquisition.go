// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/acquisition"
	"github.com/relabs-tech/brainwave_das/internal/analysis"
	"github.com/relabs-tech/brainwave_das/internal/config"
	"github.com/relabs-tech/brainwave_das/internal/device"
	"github.com/relabs-tech/brainwave_das/internal/metrics"
	"github.com/relabs-tech/brainwave_das/internal/sink"
)

const shutdownTimeout = 5 * time.Second

// runner is a sink with its own render loop.
type runner interface {
	Run(ctx context.Context)
}

// AcquisitionOptions carries what main builds before the service starts.
type AcquisitionOptions struct {
	Logger *zap.Logger
	// Logs feeds the dashboard log pane, may be nil.
	Logs sink.LineSource
	// Screen is where the terminal dashboard draws, stdout when nil.
	Screen io.Writer
}

// RunAcquisition runs the service until SIGINT/SIGTERM, ctx cancellation or
// a fault of the receive loop.
func RunAcquisition(ctx context.Context, cfg *config.Config, opts AcquisitionOptions) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	sinks, runners, err := buildSinks(ctx, cfg, opts, log, m)
	if err != nil {
		return err
	}
	dispatcher := sink.NewDispatcher(log, m, sinks...)
	log.Info("sinks configured", zap.Strings("sinks", dispatcher.Names()))

	svc := acquisition.New(acquisition.Deps{
		BindAddr:          cfg.BindAddr,
		Port:              cfg.Port,
		SampleLogInterval: config.Millis(cfg.SampleLogInterval),
		Accumulator:       device.NewAccumulator(cfg.SessionID, nil),
		Analyzer:          analysis.New(analyzerConfig(cfg), nil),
		Dispatcher:        dispatcher,
		Logger:            log,
		Metrics:           m,
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(m)}
		go func() {
			log.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	if err := svc.Start(ctx); err != nil {
		_ = svc.Stop(context.Background())
		return err
	}
	log.Info("acquisition started", zap.String("session_id", cfg.SessionID))

	for _, r := range runners {
		go r.Run(ctx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-waitAsync(svc):
		if runErr != nil {
			log.Error("acquisition stopped unexpectedly", zap.Error(runErr))
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func waitAsync(svc *acquisition.Service) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- svc.Wait() }()
	return ch
}

func analyzerConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		Motion: analysis.MotionConfig{
			AccelThreshold: cfg.AccelThreshold,
			GyroThreshold:  cfg.GyroThreshold,
			Cooldown:       cfg.Cooldown(),
			Window:         cfg.SmoothingWindow,
		},
		RelaxedThreshold: cfg.RelaxedThreshold,
	}
}

// buildSinks opens the configured sinks. The durable log is mandatory;
// an unreachable broker or Redis only disables that relay.
func buildSinks(ctx context.Context, cfg *config.Config, opts AcquisitionOptions, log *zap.Logger, m *metrics.Metrics) ([]sink.Sink, []runner, error) {
	var (
		sinks   []sink.Sink
		runners []runner
	)

	csvLog, err := sink.NewCSVLog(cfg.DataDir, cfg.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("durable log: %w", err)
	}
	log.Info("writing session log", zap.String("path", csvLog.Path()))
	sinks = append(sinks, csvLog)

	if cfg.DisplayTerminal {
		screen := opts.Screen
		if screen == nil {
			screen = os.Stdout
		}
		term := sink.NewTerminal(screen, opts.Logs, config.Millis(cfg.DisplayInterval))
		sinks = append(sinks, term)
		runners = append(runners, term)
	}

	if cfg.OLEDEnabled {
		oled, err := sink.OpenOLED(cfg.OLEDI2CAddr, config.Millis(cfg.DisplayInterval), log)
		if err != nil {
			log.Warn("oled display disabled", zap.Error(err))
		} else {
			sinks = append(sinks, oled)
			runners = append(runners, oled)
		}
	}

	relayTimeout := config.Millis(cfg.RelayTimeout)
	async := func(s sink.Sink) sink.Sink {
		return sink.Async(s, cfg.RelayQueueSize, cfg.RelayWorkers, log, m)
	}

	if cfg.RelayEnabled {
		sinks = append(sinks, async(sink.NewHTTPRelay(cfg.RelayURL, relayTimeout)))
		log.Info("http relay enabled", zap.String("url", cfg.RelayURL))
	}

	if cfg.MQTTEnabled {
		client, err := sink.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			log.Warn("mqtt relay disabled", zap.Error(err))
		} else {
			log.Info("connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))
			sinks = append(sinks, async(sink.NewMQTTRelay(client, cfg.TopicSnapshot, cfg.TopicEvents, relayTimeout)))
		}
	}

	if cfg.RedisEnabled {
		dialCtx, cancel := context.WithTimeout(ctx, relayTimeout)
		client, err := sink.DialRedis(dialCtx, cfg.RedisAddr)
		cancel()
		if err != nil {
			log.Warn("redis stream disabled", zap.Error(err))
		} else {
			sinks = append(sinks, async(sink.NewRedisStream(client, cfg.RedisStream, cfg.RedisMaxLen)))
			log.Info("redis stream enabled", zap.String("stream", cfg.RedisStream))
		}
	}

	return sinks, runners, nil
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

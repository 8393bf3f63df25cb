package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/app"
	"github.com/relabs-tech/brainwave_das/internal/headband"
	"github.com/relabs-tech/brainwave_das/internal/logging"
)

func main() {
	target := pflag.String("target", "127.0.0.1:43134", "host:port of the acquisition service")
	interval := pflag.Duration("interval", 100*time.Millisecond, "time between frames")
	bundle := pflag.Bool("bundle", false, "send each frame as a single OSC bundle")
	level := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	log, err := logging.New(logging.Options{Level: *level, Format: "console", Service: "brainwave-simulator"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting mock headband")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.SimulatorOptions{Target: *target, Interval: *interval, Bundle: *bundle}
	if err := app.RunSimulator(ctx, opts, headband.NewMockSource(), log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

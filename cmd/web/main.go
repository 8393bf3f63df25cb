// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/app"
	"github.com/relabs-tech/brainwave_das/internal/config"
	"github.com/relabs-tech/brainwave_das/internal/logging"
)

func main() {
	configPath := pflag.String("config", "das_config.txt", "path to the KEY=VALUE configuration file")
	pflag.Parse()

	log, err := logging.New(logging.Options{Service: "brainwave-web"})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting brainwave web server (MQTT subscriber)")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	if err := app.RunWeb(context.Background(), cfg, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

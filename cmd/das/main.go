// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/relabs-tech/brainwave_das/internal/app"
	"github.com/relabs-tech/brainwave_das/internal/config"
	"github.com/relabs-tech/brainwave_das/internal/logging"
)

const serviceName = "brainwave-das"

func main() {
	configPath := pflag.String("config", config.DefaultFile, "path to the KEY=VALUE configuration file, optional")
	port := pflag.Int("port", 0, "UDP port to listen on (overrides DAS_PORT)")
	session := pflag.String("session", "", "session id (overrides SESSION_ID)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		if pflag.CommandLine.Changed("port") {
			cfg.Port = *port
		}
		if *session != "" {
			cfg.SessionID = *session
		}
		err = cfg.Finalize()
	}
	if err != nil {
		fatal(nil, "failed to load config", err)
	}

	opts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: serviceName}
	var recent *logging.Recent
	if cfg.DisplayTerminal {
		// the dashboard owns stdout
		recent = logging.NewRecent(200)
		opts.File = cfg.LogFile
		opts.Quiet = cfg.LogFile == ""
		opts.Tee = recent
	}
	log, err := logging.New(opts)
	if err != nil {
		fatal(nil, "failed to create logger", err)
	}
	defer log.Sync()

	log.Info("starting brainwave data acquisition service",
		zap.Int("port", cfg.Port),
		zap.String("session_id", cfg.SessionID),
	)

	acqOpts := app.AcquisitionOptions{Logger: log}
	if recent != nil {
		acqOpts.Logs = recent
	}
	if err := app.RunAcquisition(context.Background(), cfg, acqOpts); err != nil {
		fatal(log, "fatal", err)
	}
	log.Info("brainwave data acquisition service stopped")
}

func fatal(log *zap.Logger, msg string, err error) {
	if log == nil {
		var lerr error
		if log, lerr = logging.New(logging.Options{Service: serviceName}); lerr != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
			os.Exit(1)
		}
	}
	log.Error(msg, zap.Error(err))
	_ = log.Sync()
	os.Exit(1)
}

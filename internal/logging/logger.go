// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select how the service logger is built.
type Options struct {
	Level   string // debug, info, warn, error (default info)
	Format  string // json or console (default json)
	Service string

	// File, when set, replaces stdout as the log destination. Used while the
	// terminal dashboard owns the screen.
	File string

	// Quiet drops stdout when no File is set, leaving Tee as the only
	// destination.
	Quiet bool

	// Tee receives a copy of every entry in console format.
	Tee zapcore.WriteSyncer
}

// New builds the service logger.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var cores []zapcore.Core
	switch {
	case opts.File != "":
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(f), level))
	case !opts.Quiet:
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level))
	}
	if opts.Tee != nil {
		teeCfg := encCfg
		teeCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		teeCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		teeCfg.CallerKey = zapcore.OmitKey
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(teeCfg), opts.Tee, level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(zapcore.Lock(os.Stderr)))

	if opts.Service != "" {
		logger = logger.With(zap.String("service_name", opts.Service))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		logger = logger.With(zap.String("hostname", hostname))
	}

	return logger, nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide slog logger.
//
// Logs go to stderr unless a file is configured, in which case they are
// written through a rotating lumberjack writer.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jeranaias/interview-coach/internal/config"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Init builds a logger from cfg and installs it as the slog default. The
// returned closer releases the log file and is a no-op for stderr. On a file
// setup error the logger falls back to stderr and the error is returned.
func Init(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	return initWithFallback(cfg, os.Stderr)
}

func initWithFallback(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	logPath := strings.TrimSpace(cfg.File)
	if logPath == "" {
		logger := slog.New(newHandler(cfg.Format, fallback, opts))
		slog.SetDefault(logger)
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		logger := slog.New(newHandler(cfg.Format, fallback, opts))
		slog.SetDefault(logger)
		return logger, nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	logger := slog.New(newHandler(cfg.Format, writer, opts))
	slog.SetDefault(logger)
	return logger, writer, nil
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(out, opts)
	default:
		return slog.NewJSONHandler(out, opts)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

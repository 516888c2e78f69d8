// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by every component.
// While the TUI owns the terminal, logs go to a JSON file; line mode writes
// human-readable output to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode selects the log sink.
type Mode int

const (
	// ModeFile writes JSON lines to a file (TUI).
	ModeFile Mode = iota
	// ModeConsole writes a ConsoleWriter to stderr (line mode).
	ModeConsole
)

// Options configures New.
type Options struct {
	Mode  Mode
	Level string
	File  string

	// Out overrides the sink, for tests.
	Out io.Writer
}

// ParseLevel maps a config level to zerolog. An empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// New builds the root logger and installs it as the zerolog global. The
// returned closer releases the log file, if any.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	out := opts.Out
	var closer io.Closer = nopCloser{}
	if out == nil {
		switch opts.Mode {
		case ModeConsole:
			out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		default:
			if opts.File == "" {
				out = io.Discard
				break
			}
			f, err := openLogFile(opts.File)
			if err != nil {
				return zerolog.Nop(), nopCloser{}, err
			}
			out, closer = f, f
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

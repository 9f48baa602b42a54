package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the structured logger. With no file, logs go to stderr
// unless the terminal is taken by the display, in which case they are dropped.
func newLogger(file, level string, drawing bool) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, errors.Wrapf(err, "bad log level %q", level)
	}

	var w io.Writer = os.Stderr
	closer := func() {}

	switch {
	case file != "":
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}

		w = rotator
		closer = func() { rotator.Close() }

	case drawing:
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	return logger, closer, nil
}

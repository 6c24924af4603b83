package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// configureRuntimeLogger sends structured logs to ~/.local/state/etlq/etlq.log.
// With echo set (serve mode) entries are also written to stderr. It falls back
// to stderr when the state directory is unusable.
func configureRuntimeLogger(level string, echo bool) (zerolog.Logger, func()) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	stderrLogger := func() (zerolog.Logger, func()) {
		return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), func() {}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return stderrLogger()
	}

	logDir := filepath.Join(home, ".local", "state", "etlq")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return stderrLogger()
	}

	f, err := os.OpenFile(filepath.Join(logDir, "etlq.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return stderrLogger()
	}

	var w io.Writer = f
	if echo {
		w = zerolog.MultiLevelWriter(f, console)
	}
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return logger, func() {
		_ = f.Close()
	}
}

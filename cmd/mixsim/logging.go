package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// envLogLevel overrides -log-level when the flag is not given explicitly.
const envLogLevel = "MIXSIM_LOG_LEVEL"

// newLogger builds the process logger: console output by default, JSON lines
// with -log-json.
func newLogger(w io.Writer, level string, explicit, asJSON bool) (zerolog.Logger, error) {
	if env := strings.TrimSpace(os.Getenv(envLogLevel)); env != "" && !explicit {
		level = env
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}

	out := w
	if !asJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "mixsim").Logger(), nil
}

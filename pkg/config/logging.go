package config

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the base process logger, console-pretty in "dev" mode
// (or when mode is empty) and JSON in anything else, matching the teacher's pkg/log.Mode /
// createLog behavior.
func NewLogger(pkg, mode string) zerolog.Logger {
	pid := os.Getpid()
	base := zerolog.New(os.Stderr).With().Str("pkg", pkg).Int("pid", pid).Timestamp().Logger()
	if mode == "" || mode == "dev" {
		return base.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return base
}

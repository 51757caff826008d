package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

type Options struct {
	Level  string // trace, debug, info, warn, error
	JSON   bool
	Output io.Writer
}

// New builds the root logger of the attendance engine.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "geo-attendance",
		Level:      level,
		Output:     out,
		JSONFormat: opts.JSON,
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}

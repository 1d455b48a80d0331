package logger

import (
	"io"

	"go.uber.org/zap/zapcore"
)

type config struct {
	level   zapcore.Level
	json    bool
	writers []io.Writer
}

// Option configures a logger created with New.
type Option func(*config)

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = zapcore.DebugLevel
		} else {
			c.level = zapcore.InfoLevel
		}
	}
}

// WithJSON switches to the JSON encoder for machine-readable service logs.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriters sets the output writers. Defaults to os.Stdout.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Multi returns a logger that writes every entry to all of the given loggers.
// The serve command uses it to pair console output with a JSON log file.
func Multi(loggers ...*zap.Logger) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(loggers))
	for _, l := range loggers {
		cores = append(cores, l.Core())
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Package logger provides opinionated zap logging for answerdesk
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to stdout.
func NewLogger(debug bool) *zap.Logger {
	return New(WithDebug(debug))
}

// NewLoggerWithWriters returns a console logger fanning out to every writer.
func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	return New(WithDebug(debug), WithWriters(writers...))
}

// New builds a logger from the given options.
func New(opts ...Option) *zap.Logger {
	c := &config{
		level: zap.InfoLevel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.writers) == 0 {
		c.writers = []io.Writer{os.Stdout}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if c.json {
		encoderConfig.MessageKey = "msg"
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(c.writers))
	for _, writer := range c.writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(syncers...),
		c.level,
	)

	return zap.New(core, zap.AddCaller())
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

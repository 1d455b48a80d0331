package llm

import (
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/pkg/utils"
)

// maxLoggedText bounds logged prompt and completion text.
const maxLoggedText = 2000

// LogCall records a single provider call. Successful calls log at debug,
// failures at warn.
func LogCall(logger *zap.Logger, provider, model, input, output string, duration time.Duration, err error) {
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("model", model),
		zap.String("input", utils.Truncate(input, maxLoggedText)),
		zap.Int("input_length", len(input)),
		zap.Int("output_length", len(output)),
		zap.Int64("duration_ms", duration.Milliseconds()),
		zap.Bool("success", err == nil),
	}

	if err != nil {
		logger.Warn("llm call failed", append(fields, zap.Error(err))...)
		return
	}

	logger.Debug("llm call", append(fields, zap.String("output", utils.Truncate(output, maxLoggedText)))...)
}

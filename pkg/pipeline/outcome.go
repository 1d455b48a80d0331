package pipeline

import (
	"context"
	"time"
)

// CacheProvider is the provider name recorded for cache hits.
const CacheProvider = "cache"

// Outcome records how one question was resolved. It is built once per
// request and never modified afterwards.
type Outcome struct {
	SessionID string
	UserID    string
	Question  string
	Answer    string

	Layer     Layer
	Provider  string
	Documents int
	Failed    bool

	LatencyMs    int64
	CacheMs      int64
	RetrievalMs  int64
	GenerationMs int64

	CompletedAt time.Time
}

// Recorder consumes outcomes. Errors are logged by the pipeline and never
// reach the caller of ProcessMessage.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, o Outcome) error

func (f RecorderFunc) Record(ctx context.Context, o Outcome) error {
	return f(ctx, o)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Outcome) error { return nil }

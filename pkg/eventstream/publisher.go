package eventstream

import "context"

// Publisher publishes outcome events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Package nop provides the publisher used when outcome events are disabled.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/answerdesk/pkg/eventstream"
)

// Publisher validates outcome events and drops them.
type Publisher struct {
	accepted atomic.Int64
}

// NewPublisher creates a dropping publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates e and discards it.
func (p *Publisher) Publish(_ context.Context, e eventstream.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	p.accepted.Add(1)
	return nil
}

// Accepted reports how many valid events were dropped so far.
func (p *Publisher) Accepted() int64 {
	return p.accepted.Load()
}

func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)

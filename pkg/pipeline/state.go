package pipeline

import (
	"errors"
	"fmt"
)

// State is a stage of a single resolution.
type State int

const (
	StateCacheCheck State = iota
	StateRetrieval
	StateGeneration
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateCacheCheck:
		return "cache_check"
	case StateRetrieval:
		return "retrieval"
	case StateGeneration:
		return "generation"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is what a stage reports when it finishes.
type Event int

const (
	EventCacheHit Event = iota
	EventCacheMiss
	EventDocumentsFound
	EventNoDocuments
	EventRetrievalFailed
	EventGeneratedGrounded
	EventGeneratedUngrounded
	EventGenerationFailed
)

func (e Event) String() string {
	switch e {
	case EventCacheHit:
		return "cache_hit"
	case EventCacheMiss:
		return "cache_miss"
	case EventDocumentsFound:
		return "documents_found"
	case EventNoDocuments:
		return "no_documents"
	case EventRetrievalFailed:
		return "retrieval_failed"
	case EventGeneratedGrounded:
		return "generated_grounded"
	case EventGeneratedUngrounded:
		return "generated_ungrounded"
	case EventGenerationFailed:
		return "generation_failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Layer classifies which stage produced the answer.
type Layer int

const (
	LayerNone      Layer = 0
	LayerCache     Layer = 1
	LayerGrounded  Layer = 2
	LayerGenerated Layer = 3
)

// ErrInvalidTransition is returned for an event the current state does not accept.
var ErrInvalidTransition = errors.New("invalid pipeline transition")

type transitionKey struct {
	from  State
	event Event
}

type transition struct {
	to    State
	layer Layer
}

// transitions is the only place layers are assigned. Only edges into
// StateDone carry a non-zero layer.
var transitions = map[transitionKey]transition{
	{StateCacheCheck, EventCacheHit}:  {to: StateDone, layer: LayerCache},
	{StateCacheCheck, EventCacheMiss}: {to: StateRetrieval},

	{StateRetrieval, EventDocumentsFound}:  {to: StateGeneration},
	{StateRetrieval, EventNoDocuments}:     {to: StateGeneration},
	{StateRetrieval, EventRetrievalFailed}: {to: StateGeneration},

	{StateGeneration, EventGeneratedGrounded}:   {to: StateDone, layer: LayerGrounded},
	{StateGeneration, EventGeneratedUngrounded}: {to: StateDone, layer: LayerGenerated},
	{StateGeneration, EventGenerationFailed}:    {to: StateError},
}

// machine tracks one resolution through the transition table.
type machine struct {
	state State
	layer Layer
}

func newMachine() *machine {
	return &machine{state: StateCacheCheck}
}

func (m *machine) fire(e Event) error {
	t, ok := transitions[transitionKey{m.state, e}]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, m.state, e)
	}
	m.state = t.to
	m.layer = t.layer
	return nil
}

func (m *machine) terminal() bool {
	return m.state == StateDone || m.state == StateError
}

package eventstream

import "errors"

// ErrInvalidEvent indicates an event without an id, type or schema version.
var ErrInvalidEvent = errors.New("invalid outcome event")

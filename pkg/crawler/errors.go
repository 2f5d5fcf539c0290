package crawler

import "errors"

var (
	// ErrInvalidSeedURL is returned when the seed is not an absolute http(s) URL
	ErrInvalidSeedURL = errors.New("invalid seed URL")
	// ErrNegativeDelay is returned by SetDelay for a negative duration
	ErrNegativeDelay = errors.New("delay must not be negative")
	// ErrNilAction is returned when a crawl is started without a page action
	ErrNilAction = errors.New("page action is nil")
	// ErrActionPanic wraps a recovered panic raised by a page action
	ErrActionPanic = errors.New("page action panicked")
	// ErrNilResponse is recorded when a Transport returns neither a response nor an error
	ErrNilResponse = errors.New("transport returned no response")
)

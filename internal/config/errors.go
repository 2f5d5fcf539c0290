package config

import "errors"

var (
	// ErrNoSeedURL is returned when no seed URL is provided
	ErrNoSeedURL = errors.New("no seed URL provided")
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrNegativeDelay is returned when the politeness delay is negative
	ErrNegativeDelay = errors.New("delay cannot be negative")
	// ErrNegativeLimit is returned when the page limit is negative
	ErrNegativeLimit = errors.New("limit cannot be negative")
	// ErrInvalidHeader is returned when a custom header is not in "Name: value" form
	ErrInvalidHeader = errors.New("header must be in 'Name: value' format")
	// ErrInvalidLogFormat is returned for log formats other than json and text
	ErrInvalidLogFormat = errors.New("log format must be 'json' or 'text'")
)

package storage

import (
	"errors"
	"time"
)

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
)

var (
	// ErrRunNotFound is returned when a run ID has no record
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotStarted is returned when a Recorder gets a page before its run began
	ErrRunNotStarted = errors.New("recorded run not started")
)

// Run is the summary of one recorded crawl
type Run struct {
	ID         string
	SeedURL    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	URLs       []string  // result set in fetch order, empty until finished
}

// PageRecord is one fetched page as stored
type PageRecord struct {
	URL          string
	FinalURL     string
	StatusCode   int
	Title        string
	MetaRobots   string
	CanonicalURL string
	ContentHash  string
	ContentType  string
	ResponseSize int
	DownloadTime time.Duration
	FetchError   string
	CrawledAt    time.Time
}

// LinkRecord is one outgoing link of a page
type LinkRecord struct {
	SourceURL    string
	TargetURL    string
	AnchorText   string
	RelAttribute string
}

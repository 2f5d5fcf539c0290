package crawler

import (
	"mime"
	"net/http"
	"sync"
	"time"
)

// StatusFetchFailed is the status code recorded when a page could not be
// fetched at all (connection refused, DNS failure, timeout, ...). Real HTTP
// status codes are always positive.
const StatusFetchFailed = -1

// FetchedPage is the immutable record of one fetch outcome.
type FetchedPage struct {
	URL         string        // URL key the page was fetched for
	StatusCode  int           // HTTP status code, or StatusFetchFailed
	Body        []byte        // Response body (empty on transport failure)
	Links       []string      // Raw link targets found in the body, in document order
	ContentType string        // HTTP Content-Type header
	FinalURL    string        // URL after redirects
	Err         error         // Transport error when StatusCode == StatusFetchFailed
	FetchedAt   time.Time     // When the fetch started (UTC)
	Duration    time.Duration // Total fetch time including body download
}

// Failed reports whether the page could not be fetched at transport level.
func (p FetchedPage) Failed() bool {
	return p.StatusCode == StatusFetchFailed
}

// OK reports whether the page was answered with a 2xx status.
func (p FetchedPage) OK() bool {
	return p.StatusCode >= http.StatusOK && p.StatusCode < http.StatusMultipleChoices
}

// IsError reports whether the page failed or was answered with 4xx/5xx.
func (p FetchedPage) IsError() bool {
	return p.Failed() || p.StatusCode >= http.StatusBadRequest
}

// IsHTML reports whether the body is HTML, sniffing it when the server sent
// no Content-Type.
func (p FetchedPage) IsHTML() bool {
	contentType := p.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(p.Body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Response is what a Transport returns for a completed HTTP exchange.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
	FinalURL    string // After following redirects
}

// Stats describes the outcome of the most recent crawl run.
type Stats struct {
	RunID        string
	PagesFetched int
	ErrorPages   int // Pages with StatusFetchFailed or 4xx/5xx
	ActionErrors int // Action failures isolated during dispatch
	StartTime    time.Time
	Duration     time.Duration
}

// ResultSet accumulates the URL keys fetched during a run. It is safe for
// concurrent use and keeps fetch order.
type ResultSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
	urls []string
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{seen: make(map[string]struct{})}
}

// Add records key; adding the same key twice is a no-op.
func (r *ResultSet) Add(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	r.urls = append(r.urls, key)
	return true
}

// Contains reports whether key has been recorded.
func (r *ResultSet) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[key]
	return ok
}

// Len returns the number of recorded keys.
func (r *ResultSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}

// URLs returns a copy of the recorded keys in fetch order.
func (r *ResultSet) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.urls))
	copy(out, r.urls)
	return out
}

package crawler

import "context"

// Action is the per-page handler supplied by the caller. It is invoked once
// for every fetched page, error pages included. A returned error (or a
// panic) is logged and does not stop the crawl.
type Action interface {
	Execute(ctx context.Context, page FetchedPage) error
}

// ActionFunc adapts an ordinary function to the Action interface.
type ActionFunc func(ctx context.Context, page FetchedPage) error

// Execute calls f(ctx, page).
func (f ActionFunc) Execute(ctx context.Context, page FetchedPage) error {
	return f(ctx, page)
}

// ExitCallback is notified once per run with the final set of fetched URLs.
type ExitCallback interface {
	CallBack(urls []string)
}

// ExitFunc adapts an ordinary function to the ExitCallback interface.
type ExitFunc func(urls []string)

// CallBack calls f(urls).
func (f ExitFunc) CallBack(urls []string) {
	f(urls)
}

// Transport performs a single HTTP GET. An error means no HTTP response was
// received at all; HTTP error statuses are returned as a Response.
type Transport interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// LinkExtractor returns the raw link targets found in an HTML body.
// It never fails: an empty result is the only failure signal.
type LinkExtractor interface {
	ExtractLinks(body []byte, baseURL string) []string
}

// ContentTypeExtractor is an optional LinkExtractor extension that is also
// given the response Content-Type, so a charset sent only in the header is
// honoured. The Fetcher prefers it when the extractor implements it.
type ContentTypeExtractor interface {
	ExtractLinksWithContentType(body []byte, contentType, baseURL string) []string
}

// RunStarter is an optional Action extension. RunStarted is called once per
// run, before the seed is fetched, with the run's ID. An error is logged and
// does not stop the crawl.
type RunStarter interface {
	RunStarted(ctx context.Context, runID, seed string) error
}

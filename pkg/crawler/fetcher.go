package crawler

import (
	"context"
	"log/slog"
	"time"
)

// Fetcher turns a URL key into a FetchedPage. It never fails: transport
// errors become a page with StatusFetchFailed.
//
// Links are only extracted from 2xx HTML responses. Error pages (4xx/5xx)
// and non-HTML bodies contribute no links even if they contain markup.
type Fetcher struct {
	transport Transport
	extractor LinkExtractor
	logger    *slog.Logger
}

// NewFetcher creates a fetcher over the given transport and link extractor.
func NewFetcher(transport Transport, extractor LinkExtractor, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		transport: transport,
		extractor: extractor,
		logger:    logger,
	}
}

// Fetch performs one GET for key.
func (f *Fetcher) Fetch(ctx context.Context, key string) FetchedPage {
	start := time.Now()
	page := FetchedPage{
		URL:       key,
		FinalURL:  key,
		FetchedAt: start.UTC(),
	}

	resp, err := f.transport.Get(ctx, key)
	page.Duration = time.Since(start)
	if err == nil && resp == nil {
		err = ErrNilResponse
	}
	if err != nil {
		f.logger.Debug("Fetch failed", "url", key, "error", err)
		page.StatusCode = StatusFetchFailed
		page.Err = err
		return page
	}

	page.StatusCode = resp.StatusCode
	page.Body = resp.Body
	page.ContentType = resp.ContentType
	if resp.FinalURL != "" {
		page.FinalURL = resp.FinalURL
	}

	if !page.OK() || !page.IsHTML() {
		f.logger.Debug("Skipping link extraction", "url", key, "status_code", page.StatusCode, "content_type", page.ContentType)
		return page
	}

	switch e := f.extractor.(type) {
	case nil:
	case ContentTypeExtractor:
		page.Links = e.ExtractLinksWithContentType(page.Body, page.ContentType, page.FinalURL)
	default:
		page.Links = e.ExtractLinks(page.Body, page.FinalURL)
	}
	return page
}

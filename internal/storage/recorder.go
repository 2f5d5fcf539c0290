package storage

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/masahif/tadoru/internal/parser"
	"github.com/masahif/tadoru/pkg/crawler"
)

// Recorder writes a crawl run into SQLiteStorage. It is used as the run's
// page action and as one of its exit callbacks, and stores the run under the
// engine's run ID. A Recorder follows one run at a time.
type Recorder struct {
	store  *SQLiteStorage
	parser *parser.HTMLParser
	ctx    context.Context

	mu     sync.Mutex
	runID  string
	logger *slog.Logger
	base   *slog.Logger
}

// NewRecorder creates a recorder over store. When ctx is done by the time
// the run finishes, the run is stored as cancelled.
func NewRecorder(ctx context.Context, store *SQLiteStorage, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		parser: parser.NewHTMLParser(),
		ctx:    ctx,
		logger: logger,
		base:   logger,
	}
}

// RunStarted registers the run the engine is about to crawl.
func (r *Recorder) RunStarted(ctx context.Context, runID, seed string) error {
	if err := r.store.BeginRun(runID, seed); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = runID
	r.logger = r.base.With("record_id", runID)
	return nil
}

// RunID returns the ID the current run is stored under, or "" before the
// first run started.
func (r *Recorder) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

func (r *Recorder) current() (string, *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID, r.logger
}

// Execute stores page and, for 2xx HTML pages, its title, robots directives
// and outgoing links.
func (r *Recorder) Execute(ctx context.Context, page crawler.FetchedPage) error {
	runID, logger := r.current()
	if runID == "" {
		return ErrRunNotStarted
	}

	record := &PageRecord{
		URL:          page.URL,
		FinalURL:     page.FinalURL,
		StatusCode:   page.StatusCode,
		ContentType:  page.ContentType,
		ResponseSize: len(page.Body),
		DownloadTime: page.Duration,
		CrawledAt:    page.FetchedAt,
	}
	if page.Err != nil {
		record.FetchError = page.Err.Error()
	}

	var links []LinkRecord
	if page.OK() && page.IsHTML() {
		result, err := r.parser.ParseWithContentType(page.Body, page.ContentType, page.FinalURL)
		if err != nil {
			logger.Debug("Failed to parse page for recording", "url", page.URL, "error", err)
		} else {
			record.Title = result.Title
			record.MetaRobots = result.MetaRobots
			record.CanonicalURL = result.CanonicalURL
			record.ContentHash = result.ContentHash
			links = r.linkRecords(page, result.Links)
		}
	}

	if err := r.store.SavePage(runID, record); err != nil {
		return err
	}
	return r.store.SaveLinks(runID, links)
}

// linkRecords keeps the links that normalize to a URL key.
func (r *Recorder) linkRecords(page crawler.FetchedPage, links []parser.Link) []LinkRecord {
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return nil
	}

	records := make([]LinkRecord, 0, len(links))
	for _, link := range links {
		target, ok := crawler.NormalizeURL(base, link.Href)
		if !ok {
			continue
		}
		records = append(records, LinkRecord{
			SourceURL:    page.URL,
			TargetURL:    target,
			AnchorText:   link.AnchorText,
			RelAttribute: link.RelAttribute,
		})
	}
	return records
}

// CallBack seals the run with the final result set.
func (r *Recorder) CallBack(urls []string) {
	runID, logger := r.current()
	if runID == "" {
		logger.Error("Run finished before it was recorded", "urls", len(urls))
		return
	}

	status := RunCompleted
	if r.ctx != nil && r.ctx.Err() != nil {
		status = RunCancelled
	}

	if err := r.store.FinishRun(runID, status, urls); err != nil {
		logger.Error("Failed to finish recorded run", "error", err)
		return
	}
	logger.Info("Run recorded", "status", status, "urls", len(urls))
}

var (
	_ crawler.Action       = (*Recorder)(nil)
	_ crawler.ExitCallback = (*Recorder)(nil)
	_ crawler.RunStarter   = (*Recorder)(nil)
)

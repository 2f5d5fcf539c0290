package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
)

func init() {
	// Only show errors during tests
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	slog.SetDefault(logger)
}

// notFoundBody links to an existing page; crawls must never follow it.
const notFoundBody = `<html><body><h1>Not Found</h1><a href="/brokenlink/trap.html">trap</a></body></html>`

// testSite serves testdata/ and counts hits per path.
type testSite struct {
	*httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	site := &testSite{hits: make(map[string]int)}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.mu.Unlock()

		body, err := os.ReadFile(filepath.Join("testdata", filepath.FromSlash(path.Clean(r.URL.Path))))
		if err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(notFoundBody))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}))
	t.Cleanup(site.Close)
	return site
}

func (s *testSite) url(p string) string {
	return s.URL + p
}

func (s *testSite) hitCount(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[p]
}

// recordingAction captures every dispatched page.
type recordingAction struct {
	mu    sync.Mutex
	pages []FetchedPage
	fn    func(ctx context.Context, page FetchedPage) error
}

func (a *recordingAction) Execute(ctx context.Context, page FetchedPage) error {
	a.mu.Lock()
	a.pages = append(a.pages, page)
	a.mu.Unlock()

	if a.fn != nil {
		return a.fn(ctx, page)
	}
	return nil
}

func (a *recordingAction) captured() []FetchedPage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]FetchedPage, len(a.pages))
	copy(out, a.pages)
	return out
}

func (a *recordingAction) urls() []string {
	var urls []string
	for _, p := range a.captured() {
		urls = append(urls, p.URL)
	}
	return urls
}

// exitRecorder counts exit callback invocations.
type exitRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (e *exitRecorder) CallBack(urls []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, urls)
}

func (e *exitRecorder) invocations() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.calls...)
}

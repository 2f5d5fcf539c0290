// Package crawler implements an embeddable single-host crawl engine.
// Starting from a seed URL it fetches every reachable page once, hands each
// fetched page to a caller-supplied Action and returns the set of fetched
// URLs. Crawls can run on the calling goroutine (Crawl) or in the
// background (CrawlAsync); both share the same frontier-drain loop.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/masahif/tadoru/internal/parser"
)

// DefaultRequestTimeout is the timeout of the HTTPClient built when no
// Transport is configured.
const DefaultRequestTimeout = 30 * time.Second

// Crawler holds the engine-wide configuration. Each call to Crawl or
// CrawlAsync snapshots it into an independent run, so one Crawler may serve
// concurrent crawls and may be reconfigured between them.
type Crawler struct {
	action    Action
	transport Transport
	extractor LinkExtractor
	logger    *slog.Logger

	mu          sync.Mutex
	delay       time.Duration
	exclude     []string
	exits       []ExitCallback
	concurrency int
	limit       int
	robots      bool
	robotsAgent string
	external    bool
	stats       Stats
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelay sets the politeness delay between fetches. Negative values are ignored.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithExcludeURLs sets the URLs that are never fetched or reported.
func WithExcludeURLs(urls []string) Option {
	return func(c *Crawler) {
		c.exclude = append([]string(nil), urls...)
	}
}

// WithExitCallback registers an exit callback, like OnExit.
func WithExitCallback(cb ExitCallback) Option {
	return func(c *Crawler) {
		if cb != nil {
			c.exits = append(c.exits, cb)
		}
	}
}

// WithTransport replaces the default HTTPClient.
func WithTransport(t Transport) Option {
	return func(c *Crawler) {
		c.transport = t
	}
}

// WithLinkExtractor replaces the default HTML link extractor.
func WithLinkExtractor(e LinkExtractor) Option {
	return func(c *Crawler) {
		c.extractor = e
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConcurrency sets the number of frontier consumers per run. The
// default of 1 fetches strictly one page at a time.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLimit stops a run after n fetched pages (0 = unlimited).
func WithLimit(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.limit = n
		}
	}
}

// WithRobots layers robots.txt rules for userAgent on top of the exclusion set.
func WithRobots(userAgent string) Option {
	return func(c *Crawler) {
		c.robots = true
		c.robotsAgent = userAgent
	}
}

// WithFollowExternalHosts lets a run leave the seed's scheme and host. By
// default links to any other origin are dropped.
func WithFollowExternalHosts(follow bool) Option {
	return func(c *Crawler) {
		c.external = follow
	}
}

// NewCrawler creates a crawl engine that reports every fetched page to action.
func NewCrawler(action Action, opts ...Option) *Crawler {
	c := &Crawler{
		action:      action,
		logger:      slog.Default(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = NewHTTPClient(DefaultRequestTimeout)
	}
	if c.extractor == nil {
		c.extractor = parser.NewHTMLParser()
	}
	return c
}

// SetDelay sets the politeness delay used by runs started afterwards.
func (c *Crawler) SetDelay(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeDelay, d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
	return nil
}

// SetExcludeURLs replaces the exclusion set used by runs started afterwards.
func (c *Crawler) SetExcludeURLs(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exclude = append([]string(nil), urls...)
}

// OnExit registers a callback fired once at the end of every run. Callbacks
// chain: all registered callbacks are called, in registration order.
func (c *Crawler) OnExit(cb ExitCallback) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exits = append(c.exits, cb)
}

// Stats returns statistics of the most recently completed run.
func (c *Crawler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Crawl runs a crawl from seed on the calling goroutine and returns the
// fetched URL keys once the frontier is drained. An invalid seed fails
// before any fetch. If ctx ends first, the partial result is returned
// together with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]string, error) {
	s, err := c.newSession(seed)
	if err != nil {
		return nil, err
	}
	return s.run(ctx)
}

// CrawlAsync validates seed, starts the crawl in the background and returns
// a Future resolving to the same result Crawl would return.
func (c *Crawler) CrawlAsync(ctx context.Context, seed string) (*Future, error) {
	s, err := c.newSession(seed)
	if err != nil {
		return nil, err
	}

	f := newFuture(s.id, s.state)
	go func() {
		urls, err := s.run(ctx)
		f.resolve(urls, err)
	}()
	return f, nil
}

// runConfig is the per-run snapshot of the engine configuration.
type runConfig struct {
	delay       time.Duration
	exclude     ExclusionFilter
	concurrency int
	limit       int
	robots      *RobotsFilter
	external    bool
}

// session is the mutable state of one crawl run. Nothing in it is shared
// with other runs.
type session struct {
	id     string
	seed   string
	origin string
	cfg    runConfig
	owner  *Crawler
	logger *slog.Logger

	frontier *Frontier
	results  *ResultSet
	throttle *Throttle
	fetcher  *Fetcher
	dispatch *dispatcher
	exit     *exitNotifier
	state    *stateMachine

	started    atomic.Int64
	errorPages atomic.Int64
	startTime  time.Time
}

func (c *Crawler) newSession(seed string) (*session, error) {
	if c.action == nil {
		return nil, ErrNilAction
	}

	key, err := ParseSeed(seed)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cfg := runConfig{
		delay:       c.delay,
		exclude:     NewExclusionFilter(c.exclude),
		concurrency: c.concurrency,
		limit:       c.limit,
		external:    c.external,
	}
	exits := append([]ExitCallback(nil), c.exits...)
	robots, robotsAgent := c.robots, c.robotsAgent
	c.mu.Unlock()

	if robots {
		cfg.robots = NewRobotsFilter(c.transport, robotsAgent)
	}

	id := uuid.NewString()
	logger := c.logger.With("run_id", id)

	return &session{
		id:       id,
		seed:     key,
		origin:   originOf(key),
		cfg:      cfg,
		owner:    c,
		logger:   logger,
		frontier: NewFrontier(),
		results:  NewResultSet(),
		throttle: NewThrottle(cfg.delay),
		fetcher:  NewFetcher(c.transport, c.extractor, logger),
		dispatch: &dispatcher{action: c.action, logger: logger},
		exit:     newExitNotifier(exits, logger),
		state:    &stateMachine{},
	}, nil
}

// run drains the frontier and completes the session.
func (s *session) run(ctx context.Context) ([]string, error) {
	s.startTime = time.Now()
	s.state.advance(StateRunning)
	s.logger.Info("Starting crawl", "seed", s.seed, "delay", s.cfg.delay, "excluded", s.cfg.exclude.Len(), "concurrency", s.cfg.concurrency)

	if starter, ok := s.dispatch.action.(RunStarter); ok {
		if err := starter.RunStarted(ctx, s.id, s.seed); err != nil {
			s.logger.Warn("Run start hook failed", "error", err)
		}
	}

	s.admit(ctx, s.seed)

	workCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	for i := 0; i < s.cfg.concurrency; i++ {
		id := i
		g.Go(func() error {
			s.worker(ctx, workCtx, stop, id)
			return nil
		})
	}
	_ = g.Wait()

	urls := s.results.URLs()
	s.state.advance(StateCompleted)
	s.finish(len(urls))
	s.exit.notify(urls)

	if err := ctx.Err(); err != nil {
		s.logger.Info("Crawl cancelled", "pages", len(urls), "error", err)
		return urls, err
	}
	return urls, nil
}

// worker consumes the frontier until it is exhausted or the run stops.
// workCtx only gates dequeuing, so pages already taken are finished under
// ctx when the page limit stops the run.
func (s *session) worker(ctx, workCtx context.Context, stop context.CancelFunc, id int) {
	defer s.state.advance(StateDraining)

	for {
		key, ok := s.frontier.Next(workCtx)
		if !ok {
			s.logger.Debug("Worker finished", "worker_id", id)
			return
		}
		s.process(ctx, stop, key)
		s.frontier.Done()
	}
}

// process runs throttle, fetch, dispatch and link discovery for one key.
func (s *session) process(ctx context.Context, stop context.CancelFunc, key string) {
	last := false
	if s.cfg.limit > 0 {
		n := s.started.Add(1)
		if n > int64(s.cfg.limit) {
			return
		}
		last = n == int64(s.cfg.limit)
	}

	if err := s.throttle.Wait(ctx); err != nil {
		return
	}

	page := s.fetcher.Fetch(WithRedirectPolicy(ctx, func(target string) bool {
		return s.allowed(ctx, target)
	}), key)
	if page.Failed() && ctx.Err() != nil {
		// Cut short by cancellation, not a real outcome for this URL.
		return
	}

	s.results.Add(key)
	if page.IsError() {
		s.errorPages.Add(1)
	}
	s.logger.Info("Fetched page", "url", key, "status", page.StatusCode, "links", len(page.Links), "duration", page.Duration)

	_ = s.dispatch.dispatch(ctx, page)

	if last {
		s.logger.Info("Page limit reached", "limit", s.cfg.limit)
		stop()
		return
	}

	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return
	}
	for _, raw := range page.Links {
		target, ok := NormalizeURL(base, raw)
		if !ok {
			s.logger.Debug("Dropping link", "source", key, "link", raw)
			continue
		}
		s.admit(ctx, target)
	}
}

// admit enqueues key unless it was seen before or fails allowed.
func (s *session) admit(ctx context.Context, key string) {
	if s.frontier.Seen(key) {
		return
	}
	if !s.allowed(ctx, key) {
		s.frontier.MarkVisited(key)
		return
	}
	s.frontier.Enqueue(key)
}

// allowed runs the exclusion filter, the host boundary and the robots layer
// (if any) for key. Redirect targets go through the same checks.
func (s *session) allowed(ctx context.Context, key string) bool {
	if s.cfg.exclude.IsExcluded(key) {
		s.logger.Debug("URL excluded", "url", key)
		return false
	}
	if !s.cfg.external && originOf(key) != s.origin {
		s.logger.Debug("URL outside seed host", "url", key, "origin", s.origin)
		return false
	}
	if s.cfg.robots != nil && !s.cfg.robots.Allowed(ctx, key) {
		s.logger.Info("URL disallowed by robots.txt", "url", key)
		return false
	}
	return true
}

// originOf returns the scheme://host[:port] prefix of a URL key.
func originOf(key string) string {
	u, err := url.Parse(key)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// finish publishes the run statistics on the owning Crawler.
func (s *session) finish(pages int) {
	stats := Stats{
		RunID:        s.id,
		PagesFetched: pages,
		ErrorPages:   int(s.errorPages.Load()),
		ActionErrors: s.dispatch.failures(),
		StartTime:    s.startTime,
		Duration:     time.Since(s.startTime),
	}

	s.owner.mu.Lock()
	s.owner.stats = stats
	s.owner.mu.Unlock()

	s.logger.Info("Crawl completed", "pages", stats.PagesFetched, "error_pages", stats.ErrorPages, "action_errors", stats.ActionErrors, "duration", stats.Duration)
}

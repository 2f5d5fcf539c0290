package crawler

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsFilter is an opt-in layer that keeps a crawl out of paths disallowed
// by each host's robots.txt. Rules are fetched once per host through the
// crawl's Transport. Unreachable robots.txt files allow everything.
type RobotsFilter struct {
	transport Transport
	userAgent string

	mu    sync.Mutex
	rules map[string]*robotstxt.RobotsData // nil entry: allow all
}

// NewRobotsFilter creates a filter evaluating rules for userAgent.
func NewRobotsFilter(transport Transport, userAgent string) *RobotsFilter {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsFilter{
		transport: transport,
		userAgent: userAgent,
		rules:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether key may be fetched.
func (r *RobotsFilter) Allowed(ctx context.Context, key string) bool {
	target, err := url.Parse(key)
	if err != nil || !target.IsAbs() {
		return false
	}

	rules := r.rulesFor(ctx, target)
	if rules == nil {
		return true
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return rules.TestAgent(path, r.userAgent)
}

func (r *RobotsFilter) rulesFor(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(target.Scheme + "://" + target.Host)

	r.mu.Lock()
	rules, ok := r.rules[host]
	r.mu.Unlock()
	if ok {
		return rules
	}

	resp, err := r.transport.Get(ctx, host+"/robots.txt")
	if err == nil {
		rules, err = robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	}
	if err != nil {
		rules = nil
	}

	r.mu.Lock()
	r.rules[host] = rules
	r.mu.Unlock()
	return rules
}

package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent is sent when no User-Agent is configured
	DefaultUserAgent = "Tadoru/1.0"
	// DefaultMaxBodySize caps how much of a response body is read
	DefaultMaxBodySize = 10 * 1024 * 1024
	maxRedirects       = 10
)

var errTooManyRedirects = errors.New("too many redirects")

type redirectPolicyKey struct{}

// WithRedirectPolicy returns a copy of ctx under which HTTPClient follows a
// redirect only if allow accepts the normalized target key. A rejected
// redirect is not followed; its 3xx response is returned instead.
func WithRedirectPolicy(ctx context.Context, allow func(key string) bool) context.Context {
	return context.WithValue(ctx, redirectPolicyKey{}, allow)
}

// checkRedirect caps the redirect chain and applies the policy carried by
// the request context, if any.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errTooManyRedirects
	}
	allow, ok := req.Context().Value(redirectPolicyKey{}).(func(string) bool)
	if !ok || allow == nil {
		return nil
	}
	key, ok := NormalizeURL(nil, req.URL.String())
	if !ok || !allow(key) {
		return http.ErrUseLastResponse
	}
	return nil
}

// HTTPClient is the default Transport. It issues GET requests with a fixed
// User-Agent, optional authentication and custom headers, and reads at most
// maxBodySize bytes of each body.
type HTTPClient struct {
	client        *http.Client
	userAgent     string
	maxBodySize   int64
	username      string
	password      string
	bearerToken   string
	customHeaders map[string]string
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPClientOption {
	return func(h *HTTPClient) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
func WithMaxBodySize(n int64) HTTPClientOption {
	return func(h *HTTPClient) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// WithBasicAuth sends HTTP basic credentials with every request.
func WithBasicAuth(username, password string) HTTPClientOption {
	return func(h *HTTPClient) {
		h.username = username
		h.password = password
	}
}

// WithBearerToken sends an "Authorization: Bearer" header with every request.
func WithBearerToken(token string) HTTPClientOption {
	return func(h *HTTPClient) {
		h.bearerToken = token
	}
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) HTTPClientOption {
	return func(h *HTTPClient) {
		for k, v := range headers {
			h.customHeaders[k] = v
		}
	}
}

// WithRoundTripper replaces the underlying transport, mainly for tests.
func WithRoundTripper(rt http.RoundTripper) HTTPClientOption {
	return func(h *HTTPClient) {
		if rt != nil {
			h.client.Transport = rt
		}
	}
}

// NewHTTPClient creates an HTTP client with the given request timeout.
func NewHTTPClient(timeout time.Duration, opts ...HTTPClientOption) *HTTPClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	h := &HTTPClient{
		client: &http.Client{
			Transport:     transport,
			Timeout:       timeout,
			CheckRedirect: checkRedirect,
		},
		userAgent:     DefaultUserAgent,
		maxBodySize:   DefaultMaxBodySize,
		customHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Get performs an HTTP GET. Any received response, whatever its status, is
// returned without error; an error means the exchange itself failed.
func (h *HTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	switch {
	case h.username != "":
		req.SetBasicAuth(h.username, h.password)
	case h.bearerToken != "":
		req.Header.Set("Authorization", "Bearer "+h.bearerToken)
	}
	for name, value := range h.customHeaders {
		req.Header.Set(name, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, nil
}

// Close releases idle connections.
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

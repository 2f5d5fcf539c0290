package crawler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type roundTripperFunc func(r *http.Request) (*http.Response, error)

func (rt roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return rt(r)
}

func TestHTTPClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "Tadoru-Test/1.0" {
			t.Errorf("Expected User-Agent 'Tadoru-Test/1.0', got '%s'", ua)
		}
		if v := r.Header.Get("X-Custom"); v != "yes" {
			t.Errorf("Expected X-Custom header 'yes', got '%s'", v)
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>Hello</body></html>"))
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second,
		WithUserAgent("Tadoru-Test/1.0"),
		WithHeaders(map[string]string{"X-Custom": "yes"}),
	)
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.ContentType != "text/html" {
		t.Errorf("Expected content type 'text/html', got '%s'", resp.ContentType)
	}
	if string(resp.Body) != "<html><body>Hello</body></html>" {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
	if resp.FinalURL != server.URL {
		t.Errorf("Expected final URL %s, got %s", server.URL, resp.FinalURL)
	}
}

func TestHTTPClientErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(5*time.Second).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("HTTP error status must not be a transport error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}
}

func TestHTTPClientBasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(5*time.Second, WithBasicAuth("alice", "secret")).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 with basic auth, got %d", resp.StatusCode)
	}
}

func TestHTTPClientBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewHTTPClient(5*time.Second, WithBearerToken("token-123")).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 with bearer token, got %d", resp.StatusCode)
	}
}

func TestHTTPClientMaxBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer server.Close()

	resp, err := NewHTTPClient(5*time.Second, WithMaxBodySize(100)).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("Expected body capped at 100 bytes, got %d", len(resp.Body))
	}
}

func TestHTTPClientTooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := NewHTTPClient(5*time.Second).Get(context.Background(), server.URL+"/")
	if err == nil {
		t.Fatal("Expected error for redirect loop")
	}
}

func TestHTTPClientRedirectPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/moved":
			http.Redirect(w, r, "/blocked", http.StatusFound)
		case "/hop":
			http.Redirect(w, r, "/open", http.StatusMovedPermanently)
		default:
			_, _ = w.Write([]byte("reached " + r.URL.Path))
		}
	}))
	defer server.Close()

	var asked []string
	ctx := WithRedirectPolicy(context.Background(), func(key string) bool {
		asked = append(asked, key)
		return key != server.URL+"/blocked"
	})
	client := NewHTTPClient(5 * time.Second)

	resp, err := client.Get(ctx, server.URL+"/moved")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("Expected status 302, got %d", resp.StatusCode)
	}
	if resp.FinalURL != server.URL+"/moved" {
		t.Errorf("Expected final URL to stay on /moved, got %s", resp.FinalURL)
	}

	resp, err = client.Get(ctx, server.URL+"/hop")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "reached /open" {
		t.Errorf("Expected allowed redirect to be followed, got %d %q", resp.StatusCode, resp.Body)
	}

	expected := []string{server.URL + "/blocked", server.URL + "/open"}
	if len(asked) != len(expected) || asked[0] != expected[0] || asked[1] != expected[1] {
		t.Errorf("Expected policy to see %v, got %v", expected, asked)
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewHTTPClient(50*time.Millisecond).Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestHTTPClientRoundTripper(t *testing.T) {
	client := NewHTTPClient(time.Second, WithRoundTripper(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html"}},
			Body:       io.NopCloser(bytes.NewBufferString("<title>Document</title>")),
		}, nil
	})))

	resp, err := client.Get(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(resp.Body) != "<title>Document</title>" {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
	if resp.FinalURL != "https://example.com/" {
		t.Errorf("Expected final URL to default to request URL, got %s", resp.FinalURL)
	}
}

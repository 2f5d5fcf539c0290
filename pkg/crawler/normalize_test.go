package crawler

import (
	"errors"
	"net/url"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	base, err := url.Parse("http://Example.com:80/docs/page.html?x=1")
	if err != nil {
		t.Fatalf("Failed to parse base: %v", err)
	}

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"relative", "other.html", "http://example.com/docs/other.html", true},
		{"root relative", "/index.html", "http://example.com/index.html", true},
		{"dot segments", "../a/./b.html", "http://example.com/a/b.html", true},
		{"scheme relative", "//cdn.example.com/lib.js", "http://cdn.example.com/lib.js", true},
		{"absolute https", "https://Example.com:443/x", "https://example.com/x", true},
		{"non default port kept", "http://example.com:8080/x", "http://example.com:8080/x", true},
		{"fragment stripped", "other.html#section", "http://example.com/docs/other.html", true},
		{"empty path becomes root", "http://example.com", "http://example.com/", true},
		{"query kept", "list?b=2&a=1", "http://example.com/docs/list?b=2&a=1", true},
		{"surrounding whitespace", "  other.html\n", "http://example.com/docs/other.html", true},
		{"userinfo dropped", "http://user:pw@example.com/x", "http://example.com/x", true},
		{"ipv6 host", "http://[::1]:8080/x", "http://[::1]:8080/x", true},
		{"fragment only", "#top", "", false},
		{"empty", "", "", false},
		{"mailto", "mailto:someone@example.com", "", false},
		{"javascript", "javascript:void(0)", "", false},
		{"tel", "tel:+15555550100", "", false},
		{"ftp", "ftp://example.com/file", "", false},
		{"malformed", "http://[::1", "", false},
		{"missing host", "http:///path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeURL(base, tt.raw)
			if ok != tt.ok {
				t.Fatalf("NormalizeURL(%q) ok = %v, want %v (got %q)", tt.raw, ok, tt.ok, got)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLSameKey(t *testing.T) {
	base, _ := url.Parse("http://example.com/site/index.html")

	variants := []string{
		"page.html",
		"./page.html",
		"/site/page.html",
		"http://EXAMPLE.com/site/page.html",
		"http://example.com:80/site/page.html#frag",
		"../site/page.html",
	}

	want := "http://example.com/site/page.html"
	for _, v := range variants {
		got, ok := NormalizeURL(base, v)
		if !ok || got != want {
			t.Errorf("NormalizeURL(%q) = %q, %v; want %q", v, got, ok, want)
		}
	}
}

func TestParseSeed(t *testing.T) {
	key, err := ParseSeed("HTTPS://Example.com")
	if err != nil {
		t.Fatalf("ParseSeed failed: %v", err)
	}
	if key != "https://example.com/" {
		t.Errorf("ParseSeed = %q, want %q", key, "https://example.com/")
	}

	key, err = ParseSeed("  http://example.com:80/docs/../index.html#top ")
	if err != nil {
		t.Fatalf("ParseSeed failed: %v", err)
	}
	if key != "http://example.com/index.html" {
		t.Errorf("ParseSeed = %q, want %q", key, "http://example.com/index.html")
	}

	for _, raw := range []string{"", "example.com/page", "/relative", "mailto:a@b.c", "http://[::1"} {
		if _, err := ParseSeed(raw); !errors.Is(err, ErrInvalidSeedURL) {
			t.Errorf("ParseSeed(%q) error = %v, want ErrInvalidSeedURL", raw, err)
		}
	}
}

func TestExclusionFilter(t *testing.T) {
	filter := NewExclusionFilter([]string{
		"http://Example.com:80/a.html",
		"https://example.com",
		"not a url",
	})

	if filter.Len() != 3 {
		t.Errorf("Len() = %d, want 3", filter.Len())
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"http://example.com/a.html", true},
		{"https://example.com/", true},
		{"not a url", true},
		{"http://example.com/b.html", false},
		{"https://example.com/a.html", false},
	}
	for _, tt := range tests {
		if got := filter.IsExcluded(tt.key); got != tt.want {
			t.Errorf("IsExcluded(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	var zero ExclusionFilter
	if zero.IsExcluded("http://example.com/") {
		t.Error("zero filter should exclude nothing")
	}
}

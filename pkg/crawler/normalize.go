package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// defaultPorts maps schemes to the port that is implied when none is given.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURL resolves raw, a link found on the page at base, into a URL key.
// Relative, scheme-relative and absolute links are accepted. Anything that is
// not an http(s) target (mailto:, javascript:, fragment-only links,
// unparsable strings) yields false; callers drop such links silently.
func NormalizeURL(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	if base != nil {
		ref = base.ResolveReference(ref)
	}

	return canonicalize(ref)
}

// ParseSeed validates and normalizes an absolute URL given directly by the
// caller, such as a crawl seed or an exclusion entry.
func ParseSeed(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidSeedURL, raw, err)
	}

	if !u.IsAbs() {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidSeedURL, raw)
	}

	// Resolving against itself removes dot segments.
	key, ok := canonicalize(u.ResolveReference(u))
	if !ok {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidSeedURL, raw)
	}
	return key, nil
}

// canonicalize lowercases scheme and host, drops default ports and the
// fragment, and gives an empty path the root "/".
func canonicalize(u *url.URL) (string, bool) {
	scheme := strings.ToLower(u.Scheme)
	if _, ok := defaultPorts[scheme]; !ok {
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", false
	}

	out := *u
	out.Scheme = scheme
	out.User = nil
	out.Fragment = ""
	out.RawFragment = ""
	out.Host = hostname
	if strings.Contains(hostname, ":") {
		out.Host = "[" + hostname + "]"
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		out.Host += ":" + port
	}
	if out.Path == "" && out.Opaque == "" {
		out.Path = "/"
		out.RawPath = ""
	}
	if out.Opaque != "" {
		return "", false
	}

	return out.String(), true
}

// Package parser extracts links and a little metadata from HTML documents.
package parser

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// HTMLParser extracts hyperlink targets and metadata from HTML
type HTMLParser struct {
	selector string
}

// ParseResult contains the parsed HTML data
type ParseResult struct {
	Title        string
	MetaRobots   string
	CanonicalURL string
	BaseHref     string // <base href>, resolved against the page URL
	ContentHash  string
	Links        []Link
}

// Link is one hyperlink as written in the document
type Link struct {
	Href         string // Raw href, or resolved against <base href> when present
	AnchorText   string
	RelAttribute string
}

// NewHTMLParser creates a parser that collects <a href> and <area href> targets.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{selector: "a[href], area[href]"}
}

// Parse decodes body (honouring any charset declared in the document) and
// extracts metadata and links in document order. baseURL is the URL the
// body was served from; it is only used to resolve a relative <base href>.
func (p *HTMLParser) Parse(body []byte, baseURL string) (*ParseResult, error) {
	return p.ParseWithContentType(body, "", baseURL)
}

// ParseWithContentType is like Parse but also honours a charset declared
// in the HTTP Content-Type header.
func (p *HTMLParser) ParseWithContentType(body []byte, contentType, baseURL string) (*ParseResult, error) {
	var reader io.Reader = bytes.NewReader(body)
	if len(body) > 0 {
		decoded, err := charset.NewReader(reader, contentType)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to detect charset: %w", err)
		}
		if err == nil {
			reader = decoded
		}
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	hash := sha256.Sum256(body)
	result := &ParseResult{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		ContentHash: fmt.Sprintf("%x", hash),
		Links:       []Link{},
	}

	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		if name, _ := s.Attr("name"); strings.EqualFold(name, "robots") {
			result.MetaRobots, _ = s.Attr("content")
		}
	})

	var base *url.URL
	if page, err := url.Parse(baseURL); err == nil {
		base = page
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if base != nil {
				ref = base.ResolveReference(ref)
			}
			result.BaseHref = ref.String()
			base = ref
		}
	}

	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		result.CanonicalURL = resolve(base, href)
	}

	doc.Find(p.selector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if result.BaseHref != "" && !strings.HasPrefix(href, "#") {
			href = resolve(base, href)
		}
		rel, _ := s.Attr("rel")
		result.Links = append(result.Links, Link{
			Href:         href,
			AnchorText:   strings.Join(strings.Fields(s.Text()), " "),
			RelAttribute: rel,
		})
	})

	return result, nil
}

// ExtractLinks returns the raw link targets of body. Parse failures yield
// no links.
func (p *HTMLParser) ExtractLinks(body []byte, baseURL string) []string {
	return p.ExtractLinksWithContentType(body, "", baseURL)
}

// ExtractLinksWithContentType is ExtractLinks with the response
// Content-Type, so a charset sent only in the header is honoured.
func (p *HTMLParser) ExtractLinksWithContentType(body []byte, contentType, baseURL string) []string {
	result, err := p.ParseWithContentType(body, contentType, baseURL)
	if err != nil {
		return nil
	}

	links := make([]string, 0, len(result.Links))
	for _, link := range result.Links {
		links = append(links, link.Href)
	}
	return links
}

// resolve makes href absolute against base, returning href unchanged when
// either side does not parse.
func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

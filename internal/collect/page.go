package collect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

// MinParagraph is the shortest paragraph, in characters, kept as an opinion.
const MinParagraph = 20

// maxPageBytes bounds how much of a page is read.
const maxPageBytes = 5 << 20

// PageSource reads opinions from the readable text of a web page, one per
// paragraph.
type PageSource struct {
	url  string
	opts Options
}

// NewPageSource creates a PageSource.
func NewPageSource(pageURL string, opts Options) *PageSource {
	return &PageSource{url: pageURL, opts: opts}
}

// Name is the page host.
func (s *PageSource) Name() string {
	u, err := url.Parse(s.url)
	if err != nil || u.Host == "" {
		return s.url
	}
	return u.Host
}

func (s *PageSource) Kind() string { return "page" }

// URL is the page address.
func (s *PageSource) URL() string { return s.url }

// Collect fetches the page and extracts its paragraphs.
func (s *PageSource) Collect(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.userAgent())

	resp, err := s.opts.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: %s", s.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.url, err)
	}

	parsedURL, _ := url.Parse(s.url)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("extracting text from %s: %w", s.url, err)
	}

	var items []Item
	for _, p := range Paragraphs(article.TextContent) {
		if len(items) >= s.opts.maxItems() {
			break
		}
		items = append(items, Item{Text: p, Link: s.url})
	}
	slog.Debug("extracted page", "url", s.url, "title", article.Title, "paragraphs", len(items))
	return items, nil
}

// Paragraphs splits text on line breaks and keeps the non-trivial pieces.
func Paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		p := strings.Join(strings.Fields(line), " ")
		if utf8.RuneCountInString(p) >= MinParagraph {
			out = append(out, p)
		}
	}
	return out
}

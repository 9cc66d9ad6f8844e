// Package collect turns external text sources into opinion rows for raw
// analysis: RSS/Atom feed items and the readable paragraphs of a web page.
package collect

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/config"
)

// DefaultMaxItems caps the opinions taken from one source.
const DefaultMaxItems = 50

// Item is one piece of text taken from a source.
type Item struct {
	Text      string
	Link      string
	Published time.Time
}

// Source yields opinion texts.
type Source interface {
	Name() string
	// Kind is "feed" or "page".
	Kind() string
	URL() string
	Collect(ctx context.Context) ([]Item, error)
}

// Options tune every source.
type Options struct {
	MaxItems  int
	Timeout   time.Duration
	UserAgent string
	// Since drops feed items published before it. Zero keeps everything.
	Since  time.Time
	Client *http.Client
}

// OptionsFromConfig builds Options from the sources section.
func OptionsFromConfig(cfg config.Sources) Options {
	return Options{MaxItems: cfg.MaxItems, Timeout: cfg.PageTimeout, UserAgent: cfg.UserAgent}
}

func (o Options) maxItems() int {
	if o.MaxItems < 1 {
		return DefaultMaxItems
	}
	return o.MaxItems
}

func (o Options) userAgent() string {
	if o.UserAgent == "" {
		return "Polarify/1.0 (opinion importer)"
	}
	return o.UserAgent
}

func (o Options) httpClient() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	timeout := o.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// New picks a source for a feed or page URL. Exactly one must be set.
func New(feedURL, pageURL string, opts Options) (Source, error) {
	switch {
	case feedURL != "" && pageURL != "":
		return nil, fmt.Errorf("both a feed and a page were given, pick one")
	case feedURL != "":
		if err := checkURL(feedURL); err != nil {
			return nil, err
		}
		return NewFeedSource(feedURL, opts), nil
	case pageURL != "":
		if err := checkURL(pageURL); err != nil {
			return nil, err
		}
		return NewPageSource(pageURL, opts), nil
	}
	return nil, fmt.Errorf("no feed or page given")
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL %q: want http or https", raw)
	}
	return nil
}

// Opinions numbers items as opinion rows, continuing seq.
func Opinions(items []Item, seq *api.Sequence) []api.Opinion {
	if seq == nil {
		seq = &api.Sequence{}
	}
	out := make([]api.Opinion, 0, len(items))
	for _, it := range items {
		text := strings.TrimSpace(it.Text)
		if text == "" {
			continue
		}
		out = append(out, api.Opinion{ID: seq.Next(), Content: text})
	}
	return out
}

// Collect runs src and logs the outcome.
func Collect(ctx context.Context, src Source) ([]Item, error) {
	slog.Info("collecting opinions", "source", src.Name())
	items, err := src.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting from %s: %w", src.Name(), err)
	}
	slog.Info("collection complete", "source", src.Name(), "items", len(items))
	return items, nil
}

// stripHTML removes tags, decodes entities and collapses whitespace.
func stripHTML(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

package collect

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedSource reads opinions from an RSS or Atom feed, one per item.
type FeedSource struct {
	url  string
	opts Options
}

// NewFeedSource creates a FeedSource.
func NewFeedSource(feedURL string, opts Options) *FeedSource {
	return &FeedSource{url: feedURL, opts: opts}
}

// Name is the feed host, e.g. "Example" for https://blog.example.com/rss.
func (s *FeedSource) Name() string {
	return extractSourceName(s.url)
}

func (s *FeedSource) Kind() string { return "feed" }

// URL is the feed address.
func (s *FeedSource) URL() string { return s.url }

// Collect fetches and parses the feed.
func (s *FeedSource) Collect(ctx context.Context) ([]Item, error) {
	parser := gofeed.NewParser()
	parser.Client = s.opts.httpClient()
	parser.UserAgent = s.opts.userAgent()

	feed, err := parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", s.url, err)
	}

	var items []Item
	for _, fi := range feed.Items {
		if len(items) >= s.opts.maxItems() {
			break
		}
		it, ok := parseItem(fi)
		if !ok {
			continue
		}
		if !s.opts.Since.IsZero() && !it.Published.IsZero() && it.Published.Before(s.opts.Since) {
			continue
		}
		items = append(items, it)
	}
	slog.Debug("parsed feed", "url", s.url, "entries", len(feed.Items), "kept", len(items))
	return items, nil
}

// parseItem uses the content, or else the description, with the title in
// front. An item with neither falls back to the title alone.
func parseItem(fi *gofeed.Item) (Item, bool) {
	body := ""
	if fi.Content != "" {
		body = stripHTML(fi.Content)
	}
	if body == "" && fi.Description != "" {
		body = stripHTML(fi.Description)
	}
	title := stripHTML(fi.Title)

	text := body
	switch {
	case body == "":
		text = title
	case title != "" && !strings.HasPrefix(body, title):
		text = title + ". " + body
	}
	if text == "" {
		return Item{}, false
	}

	it := Item{Text: text, Link: fi.Link}
	if it.Link == "" {
		it.Link = fi.GUID
	}
	switch {
	case fi.PublishedParsed != nil:
		it.Published = *fi.PublishedParsed
	case fi.UpdatedParsed != nil:
		it.Published = *fi.UpdatedParsed
	}
	return it, true
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[len(parts)-2]
	}
	if name == "" {
		return host
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

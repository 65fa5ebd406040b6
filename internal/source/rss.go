package source

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	rssKind         = "rss"
	rssFetchTimeout = 30 * time.Second
	rssUserAgent    = "Mozilla/5.0 (compatible; feedstream/1.0; +https://github.com/ppiankov/feedstream)"
	rssMaxRetries   = 3
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s{3,}`)
)

// RSS is a Source for one RSS or Atom feed. The sort selector is ignored:
// feeds have a single order.
type RSS struct {
	url    string
	client *http.Client
}

// NewRSS creates a feed source for feedURL.
func NewRSS(feedURL string) (*RSS, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, errors.New("rss: feed URL is required")
	}
	return &RSS{
		url: feedURL,
		client: &http.Client{
			Timeout:   rssFetchTimeout,
			Transport: &rssTransport{base: http.DefaultTransport},
		},
	}, nil
}

func (rs *RSS) Name() string {
	return rs.url
}

func (rs *RSS) Fetch(ctx context.Context, _ Sort) ([]Item, error) {
	var lastErr error
	for attempt := range rssMaxRetries {
		items, err := rs.fetchFeed(ctx)
		if err == nil {
			return items, nil
		}
		if !isRetryableError(err) {
			return nil, err
		}
		lastErr = err
		if attempt < rssMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second // 1s, 2s
			if err := rssSleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// rssTransport injects a User-Agent header into every request.
type rssTransport struct {
	base http.RoundTripper
}

func (t *rssTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", rssUserAgent)
	return t.base.RoundTrip(req)
}

// rssSleepFunc waits between retries; tests override it.
var rssSleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	s := err.Error()
	if strings.Contains(s, "timeout") || strings.Contains(s, "Timeout") {
		return true
	}
	return strings.Contains(s, "connection refused") || strings.Contains(s, "no such host")
}

func (rs *RSS) fetchFeed(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, rssFetchTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = rs.client
	feed, err := fp.ParseURLWithContext(rs.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rs.url, err)
	}

	return itemsFromFeed(feed, rs.url), nil
}

func itemsFromFeed(feed *gofeed.Feed, feedURL string) []Item {
	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		id := itemID(it)
		if id == "" {
			continue
		}
		author := ""
		if it.Author != nil {
			author = it.Author.Name
		}
		items = append(items, Item{
			ID:       id,
			Source:   feedURL,
			Kind:     rssKind,
			Title:    strings.TrimSpace(it.Title),
			Text:     itemText(it),
			Author:   author,
			URL:      it.Link,
			PostedAt: itemPublishedTime(it),
		})
	}
	return items
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	return stripHTML(raw)
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

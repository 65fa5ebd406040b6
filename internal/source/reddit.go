package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/feedstream/internal/auth"
)

const (
	redditKind        = "reddit"
	redditWebURL      = "https://www.reddit.com"
	redditTimeout     = 30 * time.Second
	redditUserAgent   = "feedstream/1.0"
	redditListingSize = 100
)

// RedditError is the error payload returned by the Reddit API.
type RedditError struct {
	Status      int    `json:"-"`
	Message     string `json:"message"`
	Explanation string `json:"explanation"`
	Reason      string `json:"reason"`
}

func (e *RedditError) Error() string {
	switch {
	case e.Explanation != "":
		return fmt.Sprintf("reddit: %s: %s", e.Message, e.Explanation)
	case e.Message != "":
		return fmt.Sprintf("reddit: %s (status %d)", e.Message, e.Status)
	case e.Status == http.StatusTooManyRequests:
		return "reddit: rate limited"
	default:
		return fmt.Sprintf("reddit: status %d", e.Status)
	}
}

// RedditClient performs authorized GET requests against the Reddit JSON API.
// An expired token is renewed by logging in again before the request is sent.
type RedditClient struct {
	auth      auth.Authenticator
	client    *http.Client
	baseURL   string
	userAgent string

	loginMu sync.Mutex
}

// NewReddit creates a client. A nil authenticator means anonymous access.
func NewReddit(a auth.Authenticator, userAgent string) *RedditClient {
	if a == nil {
		a = auth.NewAnonymous()
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = redditUserAgent
	}
	return &RedditClient{
		auth:      a,
		client:    &http.Client{Timeout: redditTimeout},
		baseURL:   a.BaseURL(),
		userAgent: userAgent,
	}
}

// Login logs the underlying authenticator in.
func (c *RedditClient) Login(ctx context.Context) error {
	return c.auth.Login(ctx, c.client)
}

// Logout revokes the authenticator's credentials.
func (c *RedditClient) Logout(ctx context.Context) error {
	return c.auth.Logout(ctx, c.client)
}

// Subreddit returns a Source polling one subreddit.
func (c *RedditClient) Subreddit(name string) *Subreddit {
	return &Subreddit{name: strings.TrimPrefix(strings.TrimSpace(name), "r/"), client: c}
}

// Multi resolves a user's multireddit into one Subreddit source per member.
func (c *RedditClient) Multi(ctx context.Context, user, name string) ([]*Subreddit, error) {
	var resp struct {
		Kind string `json:"kind"`
		Data struct {
			Subreddits []struct {
				Name string `json:"name"`
			} `json:"subreddits"`
		} `json:"data"`
	}

	path := []string{"api", "multi", "user", user, "m", name}
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("multi %s/%s: %w", user, name, err)
	}
	if resp.Kind != "LabeledMulti" {
		return nil, fmt.Errorf("multi %s/%s: expected LabeledMulti, got %q", user, name, resp.Kind)
	}

	subs := make([]*Subreddit, 0, len(resp.Data.Subreddits))
	for _, s := range resp.Data.Subreddits {
		subs = append(subs, c.Subreddit(s.Name))
	}
	return subs, nil
}

func (c *RedditClient) getJSON(ctx context.Context, path []string, params url.Values, v any) error {
	u, err := buildURL(c.baseURL, path, params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if err := c.authorize(ctx, req); err != nil {
		return fmt.Errorf("authorize: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &RedditError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// authorize signs req. On ErrNeedsRefresh it logs in once more; subreddits
// sharing the client wait for a single renewal.
func (c *RedditClient) authorize(ctx context.Context, req *http.Request) error {
	err := c.auth.AuthorizeRequest(req)
	if !errors.Is(err, auth.ErrNeedsRefresh) {
		return err
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if err := c.auth.AuthorizeRequest(req); !errors.Is(err, auth.ErrNeedsRefresh) {
		return err
	}
	if err := c.auth.Login(ctx, c.client); err != nil {
		return fmt.Errorf("renew login: %w", err)
	}
	return c.auth.AuthorizeRequest(req)
}

// buildURL joins path segments onto base and appends params plus raw_json=1.
func buildURL(base string, path []string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	escaped := make([]string, 0, len(path))
	for _, seg := range path {
		escaped = append(escaped, url.PathEscape(seg))
	}
	u = u.JoinPath(escaped...)

	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("raw_json", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ListingOptions page through a listing.
type ListingOptions struct {
	After  string // fullname anchor, e.g. "t3_abc"
	Before string
	Count  int // items already seen in this listing
	Limit  int // 0 means 100
}

func (o ListingOptions) values() url.Values {
	v := url.Values{}
	limit := o.Limit
	if limit <= 0 {
		limit = redditListingSize
	}
	v.Set("count", strconv.Itoa(o.Count))
	v.Set("limit", strconv.Itoa(limit))
	if o.After != "" {
		v.Set("after", o.After)
	}
	if o.Before != "" {
		v.Set("before", o.Before)
	}
	return v
}

// Subreddit is a Source for the submissions of one subreddit.
type Subreddit struct {
	name   string
	client *RedditClient
}

func (s *Subreddit) Name() string {
	return "r/" + s.name
}

// Fetch returns the first page of the subreddit listing.
func (s *Subreddit) Fetch(ctx context.Context, sort Sort) ([]Item, error) {
	items, _, err := s.FetchPage(ctx, sort, ListingOptions{})
	return items, err
}

// FetchPage returns one listing page and the anchor of the next one.
func (s *Subreddit) FetchPage(ctx context.Context, sort Sort, opts ListingOptions) ([]Item, string, error) {
	order := sort.Order
	if order == "" {
		order = OrderNew
	}
	params := opts.values()
	if sort.Windowed() && sort.Window != "" {
		params.Set("t", string(sort.Window))
	}

	var listing redditListing
	path := []string{"r", s.name, string(order) + ".json"}
	if err := s.client.getJSON(ctx, path, params, &listing); err != nil {
		return nil, "", fmt.Errorf("%s: %w", s.Name(), err)
	}
	if listing.Kind != "Listing" {
		return nil, "", fmt.Errorf("%s: expected Listing, got %q", s.Name(), listing.Kind)
	}

	items, err := itemsFromListing(listing, s.Name())
	if err != nil {
		return nil, "", err
	}
	return items, listing.Data.After, nil
}

func itemsFromListing(listing redditListing, sourceTag string) ([]Item, error) {
	items := make([]Item, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			return nil, fmt.Errorf("%s: expected t3 child, got %q", sourceTag, child.Kind)
		}
		p := child.Data
		if p.ID == "" {
			return nil, errors.New(sourceTag + ": submission without id")
		}

		link := p.URL
		if p.Permalink != "" {
			link = redditWebURL + p.Permalink
		}

		items = append(items, Item{
			ID:       p.ID,
			Source:   sourceTag,
			Kind:     redditKind,
			Title:    p.Title,
			Text:     strings.TrimSpace(p.Selftext),
			Author:   p.Author,
			URL:      link,
			PostedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return items, nil
}

type redditListing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string        `json:"after"`
		Before   string        `json:"before"`
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Kind string     `json:"kind"`
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

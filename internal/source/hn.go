package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	hnKind         = "hn"
	hnAPIBase      = "https://hacker-news.firebaseio.com/v0"
	hnFetchTimeout = 30 * time.Second
	hnMaxStories   = 100
	hnMaxWorkers   = 5
)

// hnLists maps list names to Firebase endpoints.
var hnLists = map[string]string{
	"new":  "newstories",
	"top":  "topstories",
	"best": "beststories",
}

// HN is a Source for one Hacker News story list. The sort selector is
// ignored; the list name fixes the order.
type HN struct {
	list      string
	minPoints int
	baseURL   string
	client    *http.Client
}

// NewHN creates a source for list ("new", "top" or "best"). Stories below
// minPoints are dropped.
func NewHN(list string, minPoints int) (*HN, error) {
	if _, ok := hnLists[list]; !ok {
		return nil, fmt.Errorf("hn: unknown list %q (want new, top or best)", list)
	}
	if minPoints < 0 {
		return nil, fmt.Errorf("hn: min_points must not be negative")
	}
	return &HN{
		list:      list,
		minPoints: minPoints,
		baseURL:   hnAPIBase,
		client:    &http.Client{Timeout: hnFetchTimeout},
	}, nil
}

func (h *HN) Name() string {
	return "hn/" + h.list
}

// hnItem represents a Hacker News story from the API.
type hnItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
	Score int    `json:"score"`
	Time  int64  `json:"time"`
	By    string `json:"by"`
	Dead  bool   `json:"dead"`
}

func (h *HN) Fetch(ctx context.Context, _ Sort) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, hnFetchTimeout)
	defer cancel()

	ids, err := h.fetchIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.Name(), err)
	}
	if len(ids) > hnMaxStories {
		ids = ids[:hnMaxStories]
	}

	type result struct {
		idx  int
		item *Item
		err  error
	}

	jobs := make(chan int, len(ids))
	results := make(chan result, len(ids))

	workers := min(hnMaxWorkers, len(ids))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				story, err := h.fetchItem(ctx, ids[idx])
				if err != nil {
					results <- result{idx: idx, err: err}
					continue
				}
				if story.Type != "story" || story.Dead || story.Score < h.minPoints {
					results <- result{idx: idx}
					continue
				}
				results <- result{idx: idx, item: &Item{
					ID:       strconv.Itoa(story.ID),
					Source:   h.Name(),
					Kind:     hnKind,
					Title:    story.Title,
					Text:     stripHTML(story.Text),
					Author:   story.By,
					URL:      story.URL,
					PostedAt: time.Unix(story.Time, 0).UTC(),
				}}
			}
		}()
	}

	for i := range ids {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Keep the list order the API returned.
	ordered := make([]*Item, len(ids))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		ordered[r.idx] = r.item
	}

	items := make([]Item, 0, len(ids))
	for _, it := range ordered {
		if it != nil {
			items = append(items, *it)
		}
	}
	if len(items) == 0 && firstErr != nil {
		return nil, fmt.Errorf("%s: %w", h.Name(), firstErr)
	}
	return items, nil
}

func (h *HN) fetchIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := h.getJSON(ctx, h.baseURL+"/"+hnLists[h.list]+".json", &ids); err != nil {
		return nil, fmt.Errorf("%s: %w", hnLists[h.list], err)
	}
	return ids, nil
}

func (h *HN) fetchItem(ctx context.Context, id int) (*hnItem, error) {
	var item hnItem
	if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &item); err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return &item, nil
}

func (h *HN) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

package source

import (
	"context"
	"time"
)

// Item represents a single record fetched from a listing.
//
// Only ID and Source matter to the streaming engine; the remaining fields are
// passed through to the consumer untouched.
type Item struct {
	ID       string    // stable identity key within Source
	Source   string    // source tag: "r/golang", a feed URL, "hn/new"
	Kind     string    // "reddit", "rss", "hn"
	Title    string    // headline
	Text     string    // body text, may be empty
	Author   string    // author name if known
	URL      string    // link to the original item
	PostedAt time.Time // publication timestamp
}

// Source fetches the current snapshot of one listing.
type Source interface {
	// Name returns the source tag stamped on every item (e.g. "r/golang").
	Name() string

	// Fetch returns the listing ordered the way the remote service returns it.
	Fetch(ctx context.Context, sort Sort) ([]Item, error)
}

// Func adapts a name and a fetch function to the Source interface.
type Func struct {
	SourceName string
	FetchFunc  func(ctx context.Context, sort Sort) ([]Item, error)
}

func (f Func) Name() string {
	return f.SourceName
}

func (f Func) Fetch(ctx context.Context, sort Sort) ([]Item, error) {
	return f.FetchFunc(ctx, sort)
}

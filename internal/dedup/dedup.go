// Package dedup records which items have already been delivered.
//
// A Store answers one question per item: is this the first time its Key has
// been recorded? Memory keeps the answer in process; SQLite and Postgres keep
// it in a table whose primary key is (item_id, source), so several streams
// and processes can share one store and let the database resolve races.
package dedup

import (
	"context"
	"errors"

	"github.com/ppiankov/feedstream/internal/source"
)

var errNotInitialized = errors.New("store is not initialized")

// Key identifies an item across sources. Two sources may reuse an ID, so the
// source tag is part of the key.
type Key struct {
	ID     string
	Source string
}

// KeyOf returns the dedup key of item.
func KeyOf(item source.Item) Key {
	return Key{ID: item.ID, Source: item.Source}
}

func (k Key) String() string {
	return k.Source + "/" + k.ID
}

// Store records delivered items.
type Store interface {
	// Store records item and reports whether it was not recorded before.
	// Once it has returned true for a key it never does so again.
	Store(ctx context.Context, item source.Item) (bool, error)

	// StoreAll records every item in order. On failure the items before the
	// failing one stay recorded and the rest are left untouched.
	StoreAll(ctx context.Context, items []source.Item) error
}

// Persistent is a Store whose records outlive the process and can be
// inspected and pruned.
type Persistent interface {
	Store
	Count(ctx context.Context) (int64, error)
	CountBySource(ctx context.Context) ([]SourceCount, error)
	Forget(ctx context.Context, src string) (int64, error)
	Close() error
}

var (
	_ Store      = (*Memory)(nil)
	_ Persistent = (*SQLite)(nil)
	_ Persistent = (*Postgres)(nil)
)

// SourceCount is the number of keys recorded for one source.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

func storeAll(ctx context.Context, s Store, items []source.Item) error {
	for _, it := range items {
		if _, err := s.Store(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

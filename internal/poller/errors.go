package poller

import (
	"fmt"

	"github.com/ppiankov/feedstream/internal/source"
)

// Result is one delivery from a poller: either a new item or an item-level
// error. Exactly one of Item and Err is meaningful.
type Result struct {
	Item source.Item
	Err  error
}

// FetchError reports a failed fetch. The poller keeps its schedule.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError reports a failed dedup write. ItemID is empty when a whole
// batch was being recorded.
type StorageError struct {
	Source string
	ItemID string
	Err    error
}

func (e *StorageError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("record %s batch: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("record %s item %s: %v", e.Source, e.ItemID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

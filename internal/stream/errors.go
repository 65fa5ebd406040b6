package stream

import (
	"errors"

	"github.com/ppiankov/feedstream/internal/poller"
)

var (
	ErrMissingSources = errors.New("stream has no sources")
	ErrMissingPeriod  = errors.New("stream poll period must be positive")
	ErrMissingStorage = errors.New("persistent stream requires a dedup store")
	ErrAlreadyStarted = errors.New("stream already started")
)

// Result is one delivery: a new item, or an item-level *FetchError or
// *StorageError. Item-level errors never end the stream.
type Result = poller.Result

// FetchError reports a failed fetch of one source.
type FetchError = poller.FetchError

// StorageError reports a failed dedup write for one item or batch.
type StorageError = poller.StorageError

package dedup

import (
	"context"
	"sync"

	"github.com/ppiankov/feedstream/internal/source"
)

// Memory is an ephemeral Store. Its contents are lost with the process.
type Memory struct {
	mu   sync.Mutex
	seen map[Key]struct{}
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{seen: make(map[Key]struct{}, 100)}
}

func (m *Memory) Store(_ context.Context, item source.Item) (bool, error) {
	k := KeyOf(item)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[k]; ok {
		return false, nil
	}
	m.seen[k] = struct{}{}
	return true, nil
}

func (m *Memory) StoreAll(ctx context.Context, items []source.Item) error {
	return storeAll(ctx, m, items)
}

// Len returns the number of recorded keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

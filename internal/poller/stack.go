package poller

// stack is a last-in-first-out queue of pending results.
type stack[T any] struct {
	items []T
}

func (s *stack[T]) push(item T) {
	s.items = append(s.items, item)
}

// pop removes and returns the top element; ok is false when the stack is empty.
func (s *stack[T]) pop() (item T, ok bool) {
	if len(s.items) == 0 {
		return item, false
	}
	idx := len(s.items) - 1
	item = s.items[idx]
	var zero T
	s.items[idx] = zero
	s.items = s.items[:idx]
	return item, true
}

func (s *stack[T]) len() int {
	return len(s.items)
}

func (s *stack[T]) clear() {
	s.items = nil
}

package engine

import "sync"

// Queue carries work from other goroutines onto the frame thread. Posted funcs run
// in order at the start of the next frame.
type Queue struct {
	mu    sync.Mutex
	items []func()
}

// Post schedules fn. It is safe to call from any goroutine.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
}

// Drain runs every queued func and returns how many ran. Funcs posted while
// draining run on the next Drain.
func (q *Queue) Drain() int {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, fn := range items {
		fn()
	}
	return len(items)
}

// Len is the number of queued funcs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops queued funcs without running them.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

package loader

import (
	"context"
	"sync"

	"GlassView/internal/scene"
	"GlassView/internal/texture"
)

// Outcome is what a load resolves to. Root and Env hold whatever was loaded even
// when Err is set, so a caller can still show a partial scene.
type Outcome struct {
	Root *scene.Graph
	Env  *texture.Image
	Err  error
}

// Ready reports whether everything loaded.
func (o Outcome) Ready() bool {
	return o.Err == nil && o.Root != nil
}

// Future is a load in flight. It resolves exactly once.
type Future struct {
	mu        sync.Mutex
	resolved  bool
	outcome   Outcome
	callbacks []func(Outcome)
	done      chan struct{}
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future that is already complete.
func Resolved(o Outcome) *Future {
	f := newFuture()
	f.resolve(o)
	return f
}

func (f *Future) resolve(o Outcome) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.outcome = o
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(o)
	}
	return true
}

// Poll returns the outcome without blocking. ok is false while the load runs.
func (f *Future) Poll() (Outcome, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome, f.resolved
}

// Done is closed once the future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx ends.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		o, _ := f.Poll()
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// OnResolve registers fn to run once with the outcome. If the future already
// resolved fn runs immediately on the caller's goroutine, otherwise on the
// resolving one.
func (f *Future) OnResolve(fn func(Outcome)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	o := f.outcome
	f.mu.Unlock()
	fn(o)
}

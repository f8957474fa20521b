package syncx

import "sync"

// Latch caches the result of a one-shot operation. The first Do runs fn;
// every later Do returns the cached result without re-invoking it. Used for
// idempotent finalize paths where the underlying writer must only be
// committed once.
type Latch[T any] struct {
	mu     sync.Mutex
	fired  bool
	result T
	err    error
}

// Do runs fn exactly once and returns its (cached) result thereafter.
// Concurrent callers block until the first invocation completes.
func (l *Latch[T]) Do(fn func() (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.fired {
		l.result, l.err = fn()
		l.fired = true
	}
	return l.result, l.err
}

// Done reports whether the latch has fired.
func (l *Latch[T]) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired
}

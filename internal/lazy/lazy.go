// Package lazy implements the memoized, TTL-invalidated value container used
// to cache per-environment policy loads (spec.md §3 "Lazy<T>", §9).
package lazy

import (
	"sync"
	"time"
)

// Initializer produces the value a Lazy container memoizes.
type Initializer[T any] func() (T, error)

// clock is overridable in tests.
var nowFn = time.Now

// Opportunistic is a Lazy container where a failed initialization leaves the
// container uninitialized; the next Get retries from scratch. Concurrent
// Get calls may both run the initializer; whichever write completes last
// wins — callers must not depend on which.
type Opportunistic[T any] struct {
	init Initializer[T]
	ttl  time.Duration

	mu       sync.Mutex
	hasValue bool
	value    T
	initAt   time.Time
}

// NewOpportunistic builds an opportunistic Lazy with no TTL (the value never
// expires on its own). Use ReinitializeAfter to add one.
func NewOpportunistic[T any](init Initializer[T]) *Opportunistic[T] {
	return &Opportunistic[T]{init: init}
}

// ReinitializeAfter configures the container to discard its cached value once
// ttl has elapsed since the last successful initialization, forcing the next
// Get to re-run the initializer.
func (l *Opportunistic[T]) ReinitializeAfter(ttl time.Duration) *Opportunistic[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = ttl
	return l
}

// Get returns the memoized value, initializing it first if necessary.
func (l *Opportunistic[T]) Get() (T, error) {
	l.mu.Lock()
	l.expireIfStale()
	if l.hasValue {
		v := l.value
		l.mu.Unlock()
		return v, nil
	}
	l.mu.Unlock()

	v, err := l.init()
	if err != nil {
		var zero T
		return zero, err
	}

	l.mu.Lock()
	l.value = v
	l.hasValue = true
	l.initAt = nowFn()
	l.mu.Unlock()
	return v, nil
}

// Reset forces the next Get to re-run the initializer.
func (l *Opportunistic[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.value = zero
	l.hasValue = false
}

func (l *Opportunistic[T]) expireIfStale() {
	if l.ttl <= 0 || !l.hasValue {
		return
	}
	if nowFn().Sub(l.initAt) >= l.ttl {
		var zero T
		l.value = zero
		l.hasValue = false
	}
}

// Pessimistic is a Lazy container guarded by a mutex: a single caller runs
// the initializer while others block; on failure the error itself is cached
// until Reset or TTL expiry, so repeated Get calls don't re-run a known-bad
// initializer.
type Pessimistic[T any] struct {
	init Initializer[T]
	ttl  time.Duration

	mu       sync.Mutex
	hasValue bool
	value    T
	err      error
	initAt   time.Time
}

// NewPessimistic builds a pessimistic Lazy with no TTL.
func NewPessimistic[T any](init Initializer[T]) *Pessimistic[T] {
	return &Pessimistic[T]{init: init}
}

// ReinitializeAfter configures the container to discard its cached value (or
// cached error) once ttl has elapsed since the last initialization attempt.
func (l *Pessimistic[T]) ReinitializeAfter(ttl time.Duration) *Pessimistic[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = ttl
	return l
}

// Get returns the memoized value, or the cached initialization error if the
// last attempt failed and no TTL has elapsed since.
func (l *Pessimistic[T]) Get() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expireIfStaleLocked()

	if l.hasValue {
		return l.value, nil
	}
	if l.err != nil {
		var zero T
		return zero, l.err
	}

	v, err := l.init()
	l.initAt = nowFn()
	if err != nil {
		l.err = err
		var zero T
		return zero, err
	}
	l.value = v
	l.hasValue = true
	l.err = nil
	return v, nil
}

// Reset clears any cached value or cached error, forcing a fresh
// initialization attempt on the next Get.
func (l *Pessimistic[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.value = zero
	l.hasValue = false
	l.err = nil
}

func (l *Pessimistic[T]) expireIfStaleLocked() {
	if l.ttl <= 0 || l.initAt.IsZero() {
		return
	}
	if nowFn().Sub(l.initAt) >= l.ttl {
		var zero T
		l.value = zero
		l.hasValue = false
		l.err = nil
	}
}

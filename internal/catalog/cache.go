package catalog

import (
	"context"
	"sync"
	"time"

	"go.miloapis.com/jitgroups/internal/lazy"
)

// PolicyCache memoizes per-environment policy loads behind a TTL (spec.md §5
// "Policy cache (per environment) is behind a Lazy with TTL"). It is a
// long-lived, shared object — unlike Catalog and its contexts, which are
// cheap per-request views constructed on top of it.
//
// Loads run with context.Background() rather than the triggering request's
// context: a load shared by concurrent requests should not abort because one
// of them was cancelled.
type PolicyCache struct {
	source Source
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]*lazy.Opportunistic[PolicyDocument]
}

// NewPolicyCache builds a cache backed by source. A zero ttl disables
// expiry: once loaded, an environment's policy is cached until Invalidate is
// called.
func NewPolicyCache(source Source, ttl time.Duration) *PolicyCache {
	return &PolicyCache{source: source, ttl: ttl, entries: make(map[string]*lazy.Opportunistic[PolicyDocument])}
}

func (c *PolicyCache) load(name string) (PolicyDocument, error) {
	c.mu.Lock()
	entry, ok := c.entries[name]
	if !ok {
		entry = lazy.NewOpportunistic(func() (PolicyDocument, error) {
			return c.source.LoadEnvironment(context.Background(), name)
		})
		if c.ttl > 0 {
			entry.ReinitializeAfter(c.ttl)
		}
		c.entries[name] = entry
	}
	c.mu.Unlock()
	return entry.Get()
}

// Invalidate forces the next load of name to re-run the Source, regardless
// of TTL. Useful after an out-of-band policy document change.
func (c *PolicyCache) Invalidate(name string) {
	c.mu.Lock()
	entry := c.entries[name]
	c.mu.Unlock()
	if entry != nil {
		entry.Reset()
	}
}

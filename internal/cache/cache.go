// Package cache memoizes compiled values by key.
package cache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// InMemory holds at most max values. Once full, new values are computed but
// not stored. Concurrent misses on one key share a single computation.
type InMemory[V any] struct {
	mu    sync.RWMutex
	max   int
	items map[string]V
	group singleflight.Group
}

func NewInMemory[V any](max int) *InMemory[V] {
	return &InMemory[V]{
		max:   max,
		items: make(map[string]V, max),
	}
}

// GetOrCompute returns the cached value for key or runs fn. Errors and
// panics from fn are returned to every waiter and never cached.
func (c *InMemory[V]) GetOrCompute(key string, fn func() (V, error)) (V, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	out, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}

		v, err := safeCall(fn)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if len(c.items) < c.max {
			c.items[key] = v
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return out.(V), nil
}

func (c *InMemory[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *InMemory[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func safeCall[V any](fn func() (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache compute panicked: %v", r)
		}
	}()
	return fn()
}

// Package cache memoises compiled decision graphs by content hash.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/awmpietro/golang-decision-engine/internal/decision"
)

type InMemory struct {
	mu    sync.RWMutex
	max   int
	items map[string]*decision.Graph
	group singleflight.Group
}

func NewInMemory(max int) *InMemory {
	if max < 0 {
		max = 0
	}
	return &InMemory{
		max:   max,
		items: make(map[string]*decision.Graph, max),
	}
}

// GetOrCompute returns the graph cached for content, compiling it with fn
// at most once across concurrent callers. Errors are never cached; once the
// cache is full new graphs are returned without being stored.
func (c *InMemory) GetOrCompute(content []byte, fn func() (*decision.Graph, error)) (*decision.Graph, error) {
	key := hash(content)

	c.mu.RLock()
	if g, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return g, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		if g, ok := c.items[key]; ok {
			c.mu.RUnlock()
			return g, nil
		}
		c.mu.RUnlock()

		g, err := safeCompute(fn)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if len(c.items) < c.max {
			c.items[key] = g
		}
		c.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*decision.Graph), nil
}

func (c *InMemory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func safeCompute(fn func() (*decision.Graph, error)) (g *decision.Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compile panicked: %v", r)
		}
	}()
	return fn()
}

func hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

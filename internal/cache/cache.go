// Package cache defines the narrow key-value capability the engine consumes
// for verdict memoization, plus an in-memory implementation. Persistent
// stores plug in behind the same interface; their TTL and concurrency
// semantics are their own concern.
package cache

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Store is the capability interface. Implementations must tolerate
// concurrent callers; the engine never performs read-modify-write cycles.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Key derives a stable cache key from its parts. blake2b keeps keys short
// and collision-resistant regardless of how large the embedded code snippet
// is.
func Key(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Memory is a process-lifetime Store.
type Memory struct {
	mu sync.RWMutex
	m  map[string]any
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: map[string]any{}}
}

func (c *Memory) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *Memory) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// Len reports the number of cached entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

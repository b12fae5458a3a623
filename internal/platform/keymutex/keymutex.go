// Package keymutex provides striped per-key mutual exclusion. The engine uses
// it to serialize message processing per sender identity without a global lock.
package keymutex

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 256

// KeyMutex maps keys onto a fixed set of mutex stripes. Two distinct keys may
// share a stripe; that only coarsens the lock, never weakens it.
type KeyMutex struct {
	stripes []sync.Mutex
}

// New creates a KeyMutex with the default stripe count.
func New() *KeyMutex {
	return &KeyMutex{stripes: make([]sync.Mutex, defaultStripes)}
}

func (m *KeyMutex) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &m.stripes[h.Sum32()%uint32(len(m.stripes))]
}

// Lock acquires the stripe owning key.
func (m *KeyMutex) Lock(key string) {
	m.stripe(key).Lock()
}

// Unlock releases the stripe owning key.
func (m *KeyMutex) Unlock(key string) {
	m.stripe(key).Unlock()
}

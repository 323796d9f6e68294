package gapstore

import (
	"sort"
	"sync"
)

// MemoryStore implements Store with an in-memory map, for tests and
// single-run ephemeral use. Unlike the teacher's unsynchronized MemoryDB,
// this is safe for concurrent PutHit calls: gapsieved runs one SieveEngine
// goroutine per worker thread, all sharing one storeProcessor and Store.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[int64]Hit
}

// NewMemoryStore creates a new in-memory hit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hits: make(map[int64]Hit),
	}
}

// PutHit records h under its discovery-time key, overwriting any existing
// hit found in the same microsecond.
func (m *MemoryStore) PutHit(h Hit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[h.FoundAtUsec] = h
	return nil
}

// ForEachHit replays every stored hit in ascending discovery-time order.
func (m *MemoryStore) ForEachHit(fn func(Hit) error) error {
	m.mu.Lock()
	keys := make([]int64, 0, len(m.hits))
	for k := range m.hits {
		keys = append(keys, k)
	}
	hits := make(map[int64]Hit, len(m.hits))
	for k, v := range m.hits {
		hits[k] = v
	}
	m.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if err := fn(hits[k]); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; MemoryStore holds no external resources.
func (m *MemoryStore) Close() error {
	return nil
}

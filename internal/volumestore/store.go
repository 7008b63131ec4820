// Package volumestore defines the core's one external persistence
// boundary (§6 "Persistence key"): an external key-value store that
// remembers each volume group's last gain index across restarts.
package volumestore

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Unset is the sentinel Load returns for a key that has never been
// written (§6: "-1 means unset").
const Unset = -1

// Key derives the persistence key for one volume group (§6, bit-exact):
// "android.car.VOLUME_GROUP/" + ((zone_id<<8)|group_id).
func Key(zoneID, groupID int) string {
	return fmt.Sprintf("android.car.VOLUME_GROUP/%d", (zoneID<<8)|groupID)
}

// Store is the external key-value boundary this core consumes. It
// never interprets the key format beyond what Key produces.
type Store interface {
	Load(ctx context.Context, key string) (int, error)
	Save(ctx context.Context, key string, value int) error
}

// MemStore is an in-memory Store for tests, the way the teacher's
// config package pairs a debounced on-disk store with a MemStore test
// double.
type MemStore struct {
	mu     sync.Mutex
	values map[string]int
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]int)}
}

func (m *MemStore) Load(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return Unset, nil
	}
	return v, nil
}

func (m *MemStore) Save(ctx context.Context, key string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// DebouncedWriter rate-limits writes to an underlying Store with one
// rate.Limiter per key. A write the key's limiter does not allow is
// dropped, not queued: within a burst of gain-index changes the writes
// the limiter allows persist, and the values in between are never
// written.
type DebouncedWriter struct {
	mu       sync.Mutex
	store    Store
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewDebouncedWriter wraps store with a per-key rate.Limiter built from
// limit and burst.
func NewDebouncedWriter(store Store, limit rate.Limit, burst int) *DebouncedWriter {
	return &DebouncedWriter{
		store:    store,
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Save writes value for key if the key's limiter currently allows it;
// otherwise the write is dropped (the next allowed write for this key
// will persist its own, more current, value — callers always hold the
// latest in-memory state regardless).
func (w *DebouncedWriter) Save(ctx context.Context, key string, value int) error {
	w.mu.Lock()
	lim, ok := w.limiters[key]
	if !ok {
		lim = rate.NewLimiter(w.limit, w.burst)
		w.limiters[key] = lim
	}
	w.mu.Unlock()

	if !lim.Allow() {
		return nil
	}
	return w.store.Save(ctx, key, value)
}

// Load passes through to the underlying store.
func (w *DebouncedWriter) Load(ctx context.Context, key string) (int, error) {
	return w.store.Load(ctx, key)
}

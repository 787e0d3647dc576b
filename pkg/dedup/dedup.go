// Package dedup is the approximate-LRU signature cache that is the sole
// mechanism preventing duplicate event inserts across WebSocket reconnects
// and historical-fallback replays.
package dedup

import (
	"container/list"
	"fmt"
	"sync"
)

// Key identifies one parsed event for dedup purposes: the program that
// emitted it, the transaction signature, and the event's position within
// that transaction's log stream.
type Key struct {
	ProgramID  string
	Signature  string
	EventIndex int
}

func (k Key) string() string {
	return fmt.Sprintf("%s|%s|%d", k.ProgramID, k.Signature, k.EventIndex)
}

// partition is a single program id's LRU: its own mutex, its own eviction
// list. Partitioning by program id gives each partition a single logical
// writer, matching the concurrency model's "dedup cache is partitioned by
// program id; each partition has a single writer" policy.
type partition struct {
	mu       sync.Mutex
	maxSize  int
	order    *list.List               // front = oldest insertion, back = newest
	elements map[string]*list.Element // key string -> list element holding Key
}

func newPartition(maxSize int) *partition {
	return &partition{
		maxSize:  maxSize,
		order:    list.New(),
		elements: make(map[string]*list.Element),
	}
}

// seenAndInsert reports whether key was already present; if not, it inserts
// it and evicts the oldest entry once the partition is at capacity.
func (p *partition) seenAndInsert(k Key) bool {
	s := k.string()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.elements[s]; ok {
		return true
	}

	elem := p.order.PushBack(s)
	p.elements[s] = elem

	if p.order.Len() > p.maxSize {
		oldest := p.order.Front()
		if oldest != nil {
			p.order.Remove(oldest)
			delete(p.elements, oldest.Value.(string))
		}
	}
	return false
}

func (p *partition) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// Cache is the process-wide signature dedup cache: an approximate LRU keyed
// by (program_id, signature, event_index), partitioned by program id so a
// writer never races itself. Max cardinality is enforced per partition,
// oldest insertion evicted first.
type Cache struct {
	maxSizePerProgram int

	mu         sync.RWMutex
	partitions map[string]*partition
}

// New builds an empty Cache. maxSizePerProgram bounds how many signatures
// each program-id partition retains before evicting its oldest entry.
func New(maxSizePerProgram int) *Cache {
	if maxSizePerProgram <= 0 {
		maxSizePerProgram = 100_000
	}
	return &Cache{
		maxSizePerProgram: maxSizePerProgram,
		partitions:        make(map[string]*partition),
	}
}

func (c *Cache) partitionFor(programID string) *partition {
	c.mu.RLock()
	p, ok := c.partitions[programID]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.partitions[programID]; ok {
		return p
	}
	p = newPartition(c.maxSizePerProgram)
	c.partitions[programID] = p
	return p
}

// SeenAndInsert reports whether key has already been recorded. If it has
// not, it is inserted and false is returned — the caller should proceed
// with the write. A true result means the caller must skip the write:
// feeding the same key twice must yield exactly one store write.
func (c *Cache) SeenAndInsert(k Key) bool {
	return c.partitionFor(k.ProgramID).seenAndInsert(k)
}

// Hydrate seeds the cache from a checkpoint snapshot taken on a previous
// run, so a restarted process doesn't re-admit events it already persisted
// before the crash or graceful shutdown.
func (c *Cache) Hydrate(keys []Key) {
	for _, k := range keys {
		c.partitionFor(k.ProgramID).seenAndInsert(k)
	}
}

// Size reports the number of keys currently retained for one program id,
// mainly for tests and metrics.
func (c *Cache) Size(programID string) int {
	c.mu.RLock()
	p, ok := c.partitions[programID]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return p.size()
}

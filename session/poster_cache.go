// Package session holds the per-editing-session poster byte cache.
//
// Compilation needs raw pixel data, and previously uploaded posters cannot be
// read back through their public URLs from a browser context, so the bytes of
// every poster uploaded in the current editing session are kept here. The
// cache is process-local and deliberately not persisted: after a new session
// starts, posters must be re-uploaded before the project can be recompiled.
package session

import "sync"

// PosterCache maps targetIndex to the raw poster bytes uploaded this session.
// When targets are renumbered after a deletion, the cache must be re-keyed in
// lockstep, otherwise the compiler would receive images in the wrong order.
type PosterCache struct {
	mu      sync.Mutex
	posters map[int][]byte
}

func NewPosterCache() *PosterCache {
	return &PosterCache{posters: make(map[int][]byte)}
}

// Put stores a copy of data; callers are free to reuse their buffer.
func (c *PosterCache) Put(index int, data []byte) {
	copied := make([]byte, len(data))
	copy(copied, data)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posters[index] = copied
}

func (c *PosterCache) Get(index int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.posters[index]
	return data, ok
}

func (c *PosterCache) Has(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.posters[index]
	return ok
}

func (c *PosterCache) Delete(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.posters, index)
}

// Rekey atomically moves entries from old indices to new ones. Entries whose
// old index is absent from the mapping are dropped.
func (c *PosterCache) Rekey(mapping map[int]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rekeyed := make(map[int][]byte, len(c.posters))
	for oldIndex, newIndex := range mapping {
		if data, ok := c.posters[oldIndex]; ok {
			rekeyed[newIndex] = data
		}
	}
	c.posters = rekeyed
}

func (c *PosterCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posters = make(map[int][]byte)
}

func (c *PosterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.posters)
}

package paging

import (
	"context"
	"fmt"
	"sync"

	"github.com/noahsabaj/voxelcore/internal/storage"
	pkgerrors "github.com/noahsabaj/voxelcore/pkg/errors"
)

// Segment is a reference-counted window of page bytes backed by one
// storage object. Grouping PagesPerSegment pages into a single object
// key amortizes the per-request overhead of the storage backend (most
// of which charge per-call latency, not per-byte), the same motivation
// the original had for mapping larger-than-one-page regions at a time.
type Segment struct {
	key  string
	data []byte

	refCount int32
	dirty    bool
}

// RefCount returns the segment's current reference count.
func (s *Segment) RefCount() int32 { return s.refCount }

// SegmentCache manages a bounded set of resident segments, evicting the
// least-referenced segment (ties broken by the order in the LRU list)
// when a new segment would push total residency over budget. This is
// the supplemented analogue of the original's MemoryMapper: it plays the
// same reference-counted-window role but reads through internal/storage
// instead of mmap'ing a single world file, since the storage backend
// abstracts over local disk and three cloud object stores alike.
type SegmentCache struct {
	mu sync.Mutex

	backend         storage.Backend
	pagesPerSegment uint32
	maxSegments     int

	segments map[string]*Segment
	lru      []string // front = least recently touched
}

// NewSegmentCache creates a segment cache reading through backend,
// grouping pagesPerSegment pages per object key, and holding at most
// maxSegments resident segments.
func NewSegmentCache(backend storage.Backend, pagesPerSegment uint32, maxSegments int) *SegmentCache {
	if pagesPerSegment == 0 {
		pagesPerSegment = 1
	}
	return &SegmentCache{
		backend:         backend,
		pagesPerSegment: pagesPerSegment,
		maxSegments:     maxSegments,
		segments:        make(map[string]*Segment),
	}
}

// PagesPerSegment returns the number of pages grouped into one segment.
func (c *SegmentCache) PagesPerSegment() uint32 { return c.pagesPerSegment }

// SegmentKeyForPage returns the object key that stores the segment
// containing the given page index.
func (c *SegmentCache) SegmentKeyForPage(pageIndex int) string {
	group := uint32(pageIndex) / c.pagesPerSegment
	return fmt.Sprintf("segments/%08x.bin", group)
}

// Acquire returns the segment containing pageIndex, fetching it from
// the backend on first touch and incrementing its reference count.
// Callers must call Release when done with the returned bytes.
func (c *SegmentCache) Acquire(ctx context.Context, pageIndex int) (*Segment, error) {
	key := c.SegmentKeyForPage(pageIndex)

	c.mu.Lock()
	if seg, ok := c.segments[key]; ok {
		seg.refCount++
		c.touch(key)
		c.mu.Unlock()
		return seg, nil
	}
	c.mu.Unlock()

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if exists, existsErr := c.backend.Exists(ctx, key); existsErr == nil && !exists {
			data = nil // fresh segment, not yet written
		} else {
			return nil, pkgerrors.New(pkgerrors.KindIoFailure, "segment fetch failed", err).
				WithDetail("key", key)
		}
	}

	seg := &Segment{key: key, data: data, refCount: 1}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.segments[key]; ok {
		// Lost a race with a concurrent Acquire; prefer the winner.
		existing.refCount++
		c.touch(key)
		return existing, nil
	}
	for len(c.segments) >= c.maxSegments && c.maxSegments > 0 {
		if !c.evictOneLocked(ctx) {
			break
		}
	}
	c.segments[key] = seg
	c.lru = append(c.lru, key)
	return seg, nil
}

// Release decrements a segment's reference count.
func (c *SegmentCache) Release(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seg.refCount > 0 {
		seg.refCount--
	}
}

// MarkDirty flags a segment as needing write-back before eviction.
func (c *SegmentCache) MarkDirty(seg *Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seg.dirty = true
}

func (c *SegmentCache) touch(key string) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
	c.lru = append(c.lru, key)
}

// evictOneLocked evicts the least-recently-touched segment with the
// lowest reference count. Returns false if every resident segment is
// still in use (refCount > 0), in which case the cache is allowed to
// temporarily exceed maxSegments rather than evict a segment a caller
// is actively reading.
func (c *SegmentCache) evictOneLocked(ctx context.Context) bool {
	bestIdx := -1
	var bestRefs int32 = -1
	for i, key := range c.lru {
		seg := c.segments[key]
		if bestIdx == -1 || seg.refCount < bestRefs {
			bestIdx, bestRefs = i, seg.refCount
		}
	}
	if bestIdx == -1 || bestRefs > 0 {
		return false
	}

	key := c.lru[bestIdx]
	seg := c.segments[key]
	if seg.dirty {
		_ = c.backend.Put(ctx, key, seg.data)
	}
	delete(c.segments, key)
	c.lru = append(c.lru[:bestIdx], c.lru[bestIdx+1:]...)
	return true
}

// Len returns the number of resident segments.
func (c *SegmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.segments)
}
